package main

import (
	"context"
	stdecdsa "crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
	"time"

	"veritas/internal/domain"
	"veritas/internal/infra/attestation"
	"veritas/internal/infra/canonical"
	"veritas/internal/infra/crypto"
	"veritas/internal/infra/hashing"
	"veritas/internal/infra/truststore"
	"veritas/internal/usecase"
)

type metadataFile struct {
	CaptureTime string   `json:"capture_time"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Azimuth     *float64 `json:"azimuth,omitempty"`
	Pitch       *float64 `json:"pitch,omitempty"`
	Roll        *float64 `json:"roll,omitempty"`
}

func loadMetadata(path string) (domain.CaptureMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.CaptureMetadata{}, err
	}
	var in metadataFile
	if err := json.Unmarshal(data, &in); err != nil {
		return domain.CaptureMetadata{}, fmt.Errorf("parse metadata: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, in.CaptureTime)
	if err != nil {
		return domain.CaptureMetadata{}, fmt.Errorf("parse capture_time: %w", err)
	}
	return domain.CaptureMetadata{
		CaptureTime: ts,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Azimuth:     in.Azimuth,
		Pitch:       in.Pitch,
		Roll:        in.Roll,
	}, nil
}

func runKeygen(args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var keyPath, pubPath string
	fs.StringVar(&keyPath, "out-key", "device.key", "private key output path")
	fs.StringVar(&pubPath, "out-pub", "device.pub", "public key output path")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	key, err := stdecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		return 1
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		return 1
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		return 1
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		return 1
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		return 1
	}
	fmt.Printf("wrote %s and %s\n", keyPath, pubPath)
	return 0
}

func runSign(args []string) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath, metaPath, keyPath string
	fs.StringVar(&inPath, "in", "", "content file")
	fs.StringVar(&metaPath, "metadata", "", "metadata JSON file")
	fs.StringVar(&keyPath, "key", "", "EC private key PEM file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" || metaPath == "" || keyPath == "" {
		fmt.Fprintln(os.Stderr, "sign: --in, --metadata and --key are required")
		return 1
	}

	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		return 1
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		fmt.Fprintln(os.Stderr, "sign: key file is not PEM")
		return 1
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		return 1
	}

	digest, metaHash, code := digestInputs(inPath, metaPath)
	if code != 0 {
		return code
	}
	payload := append(append([]byte{}, digest.RootHash...), metaHash...)
	sum := sha256.Sum256(payload)
	signature, err := stdecdsa.SignASN1(rand.Reader, key, sum[:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		return 1
	}
	fmt.Println(base64.StdEncoding.EncodeToString(signature))
	return 0
}

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath, metaPath, signatureB64, pubPath, chainPath, rootsPath, challengeB64 string
	fs.StringVar(&inPath, "in", "", "content file")
	fs.StringVar(&metaPath, "metadata", "", "metadata JSON file")
	fs.StringVar(&signatureB64, "signature", "", "signature (base64 DER)")
	fs.StringVar(&pubPath, "pubkey", "", "public key PEM file")
	fs.StringVar(&chainPath, "chain", "", "attestation chain PEM file, leaf first")
	fs.StringVar(&rootsPath, "roots", "", "trusted roots PEM file")
	fs.StringVar(&challengeB64, "challenge", "", "expected attestation challenge (base64)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" || metaPath == "" || signatureB64 == "" || pubPath == "" {
		fmt.Fprintln(os.Stderr, "verify: --in, --metadata, --signature and --pubkey are required")
		return 1
	}

	meta, err := loadMetadata(metaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify: %v\n", err)
		return 1
	}
	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify: invalid --signature: %v\n", err)
		return 1
	}
	var challenge []byte
	if challengeB64 != "" {
		challenge, err = base64.StdEncoding.DecodeString(challengeB64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "verify: invalid --challenge: %v\n", err)
			return 1
		}
	}
	pubDER, err := readPEMBlock(pubPath, "PUBLIC KEY")
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify: %v\n", err)
		return 1
	}

	var chain [][]byte
	if chainPath != "" {
		chain, err = readCertificates(chainPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "verify: %v\n", err)
			return 1
		}
	}

	trust := truststore.NewStore()
	if rootsPath != "" {
		if _, err := trust.SeedFromFile(rootsPath); err != nil {
			fmt.Fprintf(os.Stderr, "verify: %v\n", err)
			return 1
		}
	}

	f, err := os.Open(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify: %v\n", err)
		return 1
	}
	defer f.Close()

	uc := &usecase.VerifyMedia{
		Hasher:    hashing.NewHasher(0, 0),
		Metadata:  canonical.Service{},
		Signature: crypto.NewService(),
		Chain:     attestation.NewValidator(nil, domain.RevocationFailOpen, 0),
		Trust:     trust,
	}
	result, _, err := uc.Execute(context.Background(), usecase.VerifyMediaRequest{
		Content:   f,
		Metadata:  meta,
		Signature: signature,
		PublicKey: pubDER,
		Chain:     chain,
		Challenge: challenge,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify: %v\n", err)
		return 1
	}

	fmt.Printf("status: %s\n", result.Status)
	if result.Reason != domain.ReasonNone {
		fmt.Printf("reason: %s\n", result.Reason)
	}
	fmt.Printf("hardware_backed: %v\n", result.HardwareBacked)
	fmt.Printf("fingerprint: %s\n", result.Fingerprint)
	if result.Status != domain.StatusVerified {
		return 2
	}
	return 0
}

func digestInputs(inPath, metaPath string) (domain.MediaDigest, []byte, int) {
	f, err := os.Open(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		return domain.MediaDigest{}, nil, 1
	}
	defer f.Close()
	digest, err := hashing.NewHasher(0, 0).Digest(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		return domain.MediaDigest{}, nil, 1
	}
	meta, err := loadMetadata(metaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		return domain.MediaDigest{}, nil, 1
	}
	metaHash, err := canonical.Digest(meta)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		return domain.MediaDigest{}, nil, 1
	}
	return digest, metaHash, 0
}

func readPEMBlock(path, blockType string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("%s: no %s block found", path, blockType)
		}
		if block.Type == blockType {
			return block.Bytes, nil
		}
	}
}

func readCertificates(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var certs [][]byte
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		certs = append(certs, block.Bytes)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%s: no certificates found", path)
	}
	return certs, nil
}
