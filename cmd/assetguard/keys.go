package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"assetguard/pkg/signer"

	"github.com/spf13/cobra"
)

var errNoDatabase = errors.New("POSTGRES_DSN is required")

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 publisher key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, pub, err := signer.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "private_key=%s\n", base64.RawURLEncoding.EncodeToString(priv.Seed()))
			fmt.Fprintf(cmd.OutOrStdout(), "public_key=%s\n", pub)
			return nil
		},
	}
}

func newSignCmd() *cobra.Command {
	var (
		kid         string
		keyWire     string
		contentHash string
		in          string
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a content hash, or the sha256 of a file, with a publisher key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyWire == "" {
				keyWire = os.Getenv("ASSETGUARD_SIGNING_KEY")
			}
			priv, err := signer.ParsePrivateKeyWire(keyWire)
			if err != nil {
				return fmt.Errorf("parse signing key: %w", err)
			}
			s, err := signer.New(kid, priv)
			if err != nil {
				return err
			}
			hash := strings.TrimSpace(contentHash)
			if hash == "" {
				if in == "" {
					return errors.New("--content-hash or --in is required")
				}
				content, err := readInput(cmd, in)
				if err != nil {
					return err
				}
				hash = signer.HashMessage(content)
			}
			sig, err := s.SignHash(hash)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kid=%s\ncontent_hash=%s\nsignature=%s\n", s.KID(), hash, sig)
			return nil
		},
	}
	cmd.Flags().StringVar(&kid, "kid", "", "key identifier registered with the engine")
	cmd.Flags().StringVar(&keyWire, "key", "", "base64url ed25519 seed or private key (env ASSETGUARD_SIGNING_KEY)")
	cmd.Flags().StringVar(&contentHash, "content-hash", "", "canonical content hash to sign")
	cmd.Flags().StringVar(&in, "in", "", "file to hash and sign, - for stdin")
	_ = cmd.MarkFlagRequired("kid")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
