package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "digest":
		return runDigest(args[2:])
	case "canonical":
		return runCanonical(args[2:])
	case "keygen":
		return runKeygen(args[2:])
	case "sign":
		return runSign(args[2:])
	case "verify":
		return runVerify(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "veritas"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s digest --in <file> [--chunk-size <bytes>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s canonical --capture-time <rfc3339> --lat <deg> --lng <deg> [--azimuth <deg>] [--pitch <deg>] [--roll <deg>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s keygen --out-key <file> --out-pub <file>\n", name)
	fmt.Fprintf(os.Stderr, "  %s sign --in <file> --metadata <json-file> --key <pem-file>\n", name)
	fmt.Fprintf(os.Stderr, "  %s verify --in <file> --metadata <json-file> --signature <b64> --pubkey <pem-file> [--chain <pem-file>] [--roots <pem-file>] [--challenge <b64>]\n", name)
}
