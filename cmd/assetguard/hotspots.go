package main

import (
	"encoding/json"
	"fmt"

	"assetguard/internal/domain"
	cryptoinfra "assetguard/internal/infra/crypto"

	"github.com/spf13/cobra"
)

type hotspotFile struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	ActionType  string  `json:"action_type"`
	ActionValue string  `json:"action_value"`
}

func newHashHotspotsCmd() *cobra.Command {
	var (
		in            string
		showCanonical bool
	)
	cmd := &cobra.Command{
		Use:   "hash-hotspots",
		Short: "Print the content hash of a JSON array of hotspots",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			var items []hotspotFile
			if err := json.Unmarshal(raw, &items); err != nil {
				return fmt.Errorf("decode hotspots: %w", err)
			}
			hotspots := make([]domain.Hotspot, 0, len(items))
			for _, h := range items {
				hotspots = append(hotspots, domain.Hotspot{
					X:           h.X,
					Y:           h.Y,
					Width:       h.Width,
					Height:      h.Height,
					Label:       h.Label,
					Description: h.Description,
					ActionType:  h.ActionType,
					ActionValue: h.ActionValue,
				})
			}
			canonical, err := cryptoinfra.CanonicalizeHotspots(hotspots)
			if err != nil {
				return err
			}
			hash, err := cryptoinfra.ContentHash(canonical)
			if err != nil {
				return err
			}
			if showCanonical {
				fmt.Fprintln(cmd.OutOrStdout(), string(canonical))
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "-", "hotspot JSON file, - for stdin")
	cmd.Flags().BoolVar(&showCanonical, "canonical", false, "also print the canonical form")
	return cmd
}
