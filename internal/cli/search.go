package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Earthondev/hanaihang/internal/app"
	"github.com/Earthondev/hanaihang/internal/domain/geo"
	"github.com/Earthondev/hanaihang/internal/domain/search/request"
	"github.com/Earthondev/hanaihang/internal/domain/search/result"
	"github.com/Earthondev/hanaihang/internal/domain/search/scope"
)

type searchOutput struct {
	Stage string          `json:"stage"`
	Items []result.Result `json:"items"`
}

func newSearchCmd(opts *options) *cobra.Command {
	var (
		lat, lng float64
		limit    int
		sc       string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a unified mall and store search",
		Long: `Search malls and stores by name. Results are ranked by distance when
both --lat and --lng are given.

Examples:
  hanaihangctl search "central"
  hanaihangctl search "uniqlo" --scope stores --limit 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var origin *geo.Point
			latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
			switch {
			case latSet && lngSet:
				origin = &geo.Point{Lat: lat, Lng: lng}
			case latSet || lngSet:
				return fmt.Errorf("--lat and --lng must be given together")
			}

			req, err := request.New(strings.Join(args, " "), origin, limit, scope.Scope(sc))
			if err != nil {
				return fmt.Errorf("build request: %w", err)
			}

			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				resp := a.Search.Search(ctx, &req)
				items := resp.Results
				if items == nil {
					items = []result.Result{}
				}
				return printJSON(cmd.OutOrStdout(), searchOutput{Stage: string(resp.Stage), Items: items})
			})
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "origin latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "origin longitude")
	cmd.Flags().IntVar(&limit, "limit", request.DefaultLimit, "maximum number of results")
	cmd.Flags().StringVar(&sc, "scope", string(scope.All), "all, malls or stores")
	return cmd
}
