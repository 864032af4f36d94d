package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Admissions/internal/api"
)

type seedOptions struct {
	apiURL   string
	token    string
	filePath string
	dryRun   bool
}

func newSeedCmd() *cobra.Command {
	var opts seedOptions
	c := &cobra.Command{
		Use:   "seed",
		Short: "Create a period and its criteria through the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.apiURL == "" {
				opts.apiURL = envOr("ADMISSIONS_API_URL", "http://localhost:8700")
			}
			if opts.token == "" {
				opts.token = os.Getenv("ADMISSIONS_ADMIN_TOKEN")
			}
			pf, err := loadPeriodFile(opts.filePath)
			if err != nil {
				return err
			}
			req := pf.request()
			if opts.dryRun {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(req)
			}

			created, err := seedPeriod(cmd.Context(), http.DefaultClient, opts.apiURL, opts.token, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created period %s (%s, %d criteria)\n", created.ID, created.Name, len(created.Criteria))
			return nil
		},
	}
	c.Flags().StringVar(&opts.apiURL, "api", "", "admissions API base URL (default $ADMISSIONS_API_URL or http://localhost:8700)")
	c.Flags().StringVar(&opts.token, "token", "", "admin token (default $ADMISSIONS_ADMIN_TOKEN)")
	c.Flags().StringVar(&opts.filePath, "file", "", "period YAML (required)")
	c.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the request without sending it")
	_ = c.MarkFlagRequired("file")
	return c
}

func seedPeriod(ctx context.Context, client *http.Client, baseURL, token string, body api.CreatePeriodRequest) (*api.PeriodDetail, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/v1/periods", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create period: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("create period: %s: %s", resp.Status, apiErr.Error)
		}
		return nil, fmt.Errorf("create period: %s", resp.Status)
	}

	var created api.PeriodDetail
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &created, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
