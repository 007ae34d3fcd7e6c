package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"veritas/internal/domain"
	"veritas/internal/infra/canonical"
	"veritas/internal/infra/hashing"
)

func runDigest(args []string) int {
	fs := flag.NewFlagSet("digest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath string
	var chunkSize int64
	fs.StringVar(&inPath, "in", "", "input file")
	fs.Int64Var(&chunkSize, "chunk-size", 0, "chunk size in bytes")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" {
		fmt.Fprintln(os.Stderr, "digest: --in is required")
		return 1
	}

	f, err := os.Open(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "digest: %v\n", err)
		return 1
	}
	defer f.Close()

	digest, err := hashing.NewHasher(chunkSize, 0).Digest(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "digest: %v\n", err)
		return 1
	}
	fmt.Printf("%s:%s\n", digest.Algorithm, hex.EncodeToString(digest.RootHash))
	if digest.Chunked() {
		fmt.Printf("chunks: %d\n", len(digest.ChunkHashes))
	}
	return 0
}

func runCanonical(args []string) int {
	fs := flag.NewFlagSet("canonical", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var captureTime string
	var lat, lng float64
	azimuth := fs.Float64("azimuth", 0, "azimuth in degrees")
	pitch := fs.Float64("pitch", 0, "pitch in degrees")
	roll := fs.Float64("roll", 0, "roll in degrees")
	fs.StringVar(&captureTime, "capture-time", "", "capture time (RFC3339)")
	fs.Float64Var(&lat, "lat", 0, "latitude in degrees")
	fs.Float64Var(&lng, "lng", 0, "longitude in degrees")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	ts, err := time.Parse(time.RFC3339, captureTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "canonical: invalid --capture-time: %v\n", err)
		return 1
	}
	meta := domain.CaptureMetadata{CaptureTime: ts, Latitude: lat, Longitude: lng}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "azimuth":
			meta.Azimuth = azimuth
		case "pitch":
			meta.Pitch = pitch
		case "roll":
			meta.Roll = roll
		}
	})

	serialized, err := canonical.Serialize(meta)
	if err != nil {
		fmt.Fprintf(os.Stderr, "canonical: %v\n", err)
		return 1
	}
	sum, err := canonical.Digest(meta)
	if err != nil {
		fmt.Fprintf(os.Stderr, "canonical: %v\n", err)
		return 1
	}
	fmt.Printf("%s\n", serialized)
	fmt.Printf("sha256:%s\n", hex.EncodeToString(sum))
	return 0
}
