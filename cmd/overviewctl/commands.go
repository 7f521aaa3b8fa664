package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xela07ax/site-overview/internal/app"
	"github.com/xela07ax/site-overview/internal/domain"
	"github.com/xela07ax/site-overview/internal/infra"
	"github.com/xela07ax/site-overview/internal/overview"
	"go.uber.org/zap"
)

var (
	siteFlag    string
	hostFlag    string
	lenientFlag bool

	tooltipReq domain.HostTooltipRequest
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Print the overview as JSON",
	Long:  `Print the fleet overview, or the host overview of one site when --site is given`,
	Example: `  # All sites
  overviewctl overview -c configs/config.yaml

  # Hosts of one site matching a regex
  overviewctl overview --site muc --host '^web'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			req := domain.OverviewRequest{Context: domain.VisualContext{}}
			if siteFlag != "" {
				req.Context["site"] = map[string]string{"site": siteFlag}
			}
			if hostFlag != "" {
				req.Context["hostregex"] = map[string]string{"host_regex": hostFlag}
			}
			resp, err := a.Generator.Generate(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		})
	},
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List sites with their current reachability",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			if err := a.Reach.RefreshDeadSites(ctx); err != nil {
				return err
			}
			list, err := a.Registry.Sites(ctx)
			if err != nil {
				return err
			}
			return printSites(cmd.OutOrStdout(), list, a.Reach.States())
		})
	},
}

var sitesEnableCmd = &cobra.Command{
	Use:   "enable <site-id>",
	Short: "Enable polling of a site (database registry only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd, args[0], false)
	},
}

var sitesDisableCmd = &cobra.Command{
	Use:   "disable <site-id>",
	Short: "Disable polling of a site (database registry only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd, args[0], true)
	},
}

var tooltipCmd = &cobra.Command{
	Use:   "tooltip",
	Short: "Render the host hover tooltip",
	RunE: func(cmd *cobra.Command, args []string) error {
		html, err := overview.RenderHostTooltip(tooltipReq)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
		return err
	},
}

func init() {
	overviewCmd.Flags().StringVar(&siteFlag, "site", "", "show hosts of this site")
	overviewCmd.Flags().StringVar(&hostFlag, "host", "", "host name regex (host mode only)")
	overviewCmd.Flags().BoolVar(&lenientFlag, "lenient", false, "skip malformed rows instead of failing")

	tooltipCmd.Flags().StringVar(&tooltipReq.Title, "title", "", "host name")
	tooltipCmd.Flags().StringVar(&tooltipReq.HostCSSClass, "host-css-class", "up", "host class (up, down, unreachable, downtime)")
	tooltipCmd.Flags().StringVar(&tooltipReq.ServiceCSSClass, "service-css-class", "ok", "worst service class")
	tooltipCmd.Flags().IntVar(&tooltipReq.NumServices, "num-services", 0, "number of services")
	tooltipCmd.Flags().IntVar(&tooltipReq.NumProblems, "num-problems", 0, "number of problem services")
	_ = tooltipCmd.MarkFlagRequired("title")
}

func setDisabled(cmd *cobra.Command, id string, disabled bool) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
		if a.SiteRepo == nil {
			return errors.New("sites are configured statically, edit the sites section of the config instead")
		}
		if err := a.SiteRepo.SetDisabled(ctx, id, disabled); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "site %s disabled=%v\n", id, disabled)
		return err
	})
}

// withApp грузит конфиг, собирает зависимости и закрывает их после команды
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if lenientFlag {
		cfg.Overview.DecodeMode = "lenient"
	}
	logger, err := infra.NewLogger(infra.LoggerConfig{Level: logLevel, Format: "console"})
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build app", zap.Error(err))
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSites(w io.Writer, list []domain.Site, states map[string]domain.SiteStatus) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tALIAS\tTRANSPORT\tSTATE")
	for _, s := range list {
		state := domain.SiteMissing
		if st, ok := states[s.ID]; ok {
			state = st.State
		}
		transport := s.Transport
		if transport == "" {
			transport = domain.TransportLivestatus
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Alias, transport, state)
	}
	return tw.Flush()
}
