package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gigledger/internal/app"
	"gigledger/internal/db"
	"gigledger/internal/domain"
	"gigledger/internal/engine"
	"gigledger/internal/migrate"
	"gigledger/internal/repo"
	"gigledger/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "gig",
	Short: "Gigledger CLI",
	Long: `Gigledger is an escrow ledger for gig work between owners and workers.
- Workspace: your .gigledger directory with the database; limits live in gigledger.yml.
- Gigs: posted by an owner with the payment locked in escrow up front; statuses go
  open -> accepted -> completed -> paid, with a disputed branch.
- Milestones: slices of the payment booked against deliverables, never exceeding it.
- Disputes: either participant can raise one at any point.
- Ratings and portfolios: running reputation per principal.
- Event log: diary of everything, view with 'gig log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	_ = godotenv.Load()
	viper.SetEnvPrefix("GIGLEDGER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("principal", "local-user", "acting principal")
	rootCmd.PersistentFlags().String("ledger", "", "ledger id (overrides config)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("principal", rootCmd.PersistentFlags().Lookup("principal"))
	_ = viper.BindPFlag("ledger", rootCmd.PersistentFlags().Lookup("ledger"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(gigCmd())
	rootCmd.AddCommand(disputeCmd())
	rootCmd.AddCommand(milestoneCmd())
	rootCmd.AddCommand(categoryCmd())
	rootCmd.AddCommand(portfolioCmd())
	rootCmd.AddCommand(rateCmd())
	rootCmd.AddCommand(accountCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize workspace and database",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := app.ResolveConfig(workspace, viper.GetString("ledger"))
			if err != nil {
				return err
			}
			fmt.Printf("Initialized ledger %s in %s\n", cfg.Ledger.ID, db.Path(workspace))
			return nil
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Ledger status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				counts, err := e.Repo.CountGigsByStatus(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{
					"ledger_id":  e.Config.Ledger.ID,
					"gig_counts": counts,
				})
			})
		},
	}
	return cmd
}

func gigCmd() *cobra.Command {
	gig := &cobra.Command{Use: "gig", Short: "Manage gigs"}
	gig.AddCommand(gigCreateCmd())
	gig.AddCommand(gigAcceptCmd())
	gig.AddCommand(gigCompleteCmd())
	gig.AddCommand(gigReleaseCmd())
	gig.AddCommand(gigShowCmd())
	gig.AddCommand(gigListCmd())
	gig.AddCommand(gigUserCmd())
	return gig
}

func gigCreateCmd() *cobra.Command {
	var title, description string
	var payment uint64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Post a gig with the payment locked in escrow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.CreateGig(ctx, viper.GetString("principal"), title, description, payment)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "gig title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().Uint64Var(&payment, "payment", 0, "payment amount")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("payment")
	return cmd
}

func gigAcceptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accept <gig-id>",
		Short: "Accept a gig as worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGigID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.AcceptGig(ctx, viper.GetString("principal"), id)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	return cmd
}

func gigCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <gig-id>",
		Short: "Mark a gig delivered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGigID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.CompleteGig(ctx, viper.GetString("principal"), id)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	return cmd
}

func gigReleaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release <gig-id>",
		Short: "Release escrow to the worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGigID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.ReleasePayment(ctx, viper.GetString("principal"), id)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	return cmd
}

func gigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <gig-id>",
		Short: "Show a gig with milestones, categories and dispute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGigID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.GetGig(ctx, id)
				if err != nil {
					return err
				}
				if g == nil {
					return fmt.Errorf("gig %d not found", id)
				}
				return printJSONOrTable(g)
			})
		},
	}
	return cmd
}

func gigListCmd() *cobra.Command {
	var owner, worker, status string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List gigs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				gigs, err := e.ListGigs(ctx, repo.GigFilters{
					Owner:  owner,
					Worker: worker,
					Status: status,
					Limit:  limit,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(gigs)
				}
				renderGigTable(gigs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "filter by owner")
	cmd.Flags().StringVar(&worker, "worker", "", "filter by worker")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&limit, "limit", 50, "max results")
	return cmd
}

func gigUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user <principal>",
		Short: "Show gigs a principal owns or works",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ug, err := e.GetUserGigs(ctx, args[0])
				if err != nil {
					return err
				}
				if ug == nil {
					return fmt.Errorf("no gigs for %s", args[0])
				}
				return printJSONOrTable(ug)
			})
		},
	}
	return cmd
}

func disputeCmd() *cobra.Command {
	dispute := &cobra.Command{Use: "dispute", Short: "Manage disputes"}
	var gigID uint64
	var description string
	create := &cobra.Command{
		Use:   "create",
		Short: "Raise a dispute on a gig",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.CreateDispute(ctx, viper.GetString("principal"), gigID, description)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	create.Flags().Uint64Var(&gigID, "gig", 0, "gig id")
	create.Flags().StringVar(&description, "description", "", "what went wrong")
	_ = create.MarkFlagRequired("gig")
	dispute.AddCommand(create)
	return dispute
}

func milestoneCmd() *cobra.Command {
	milestone := &cobra.Command{Use: "milestone", Short: "Manage milestones"}
	milestone.AddCommand(milestoneAddCmd())
	milestone.AddCommand(milestoneCompleteCmd())
	return milestone
}

func milestoneAddCmd() *cobra.Command {
	var gigID, amount uint64
	var description string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Book a milestone against the gig payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.AddMilestone(ctx, viper.GetString("principal"), gigID, description, amount)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().Uint64Var(&gigID, "gig", 0, "gig id")
	cmd.Flags().StringVar(&description, "description", "", "deliverable")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "milestone amount")
	_ = cmd.MarkFlagRequired("gig")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func milestoneCompleteCmd() *cobra.Command {
	var gigID uint64
	var position int
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Mark a milestone done",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.CompleteMilestone(ctx, viper.GetString("principal"), gigID, position)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().Uint64Var(&gigID, "gig", 0, "gig id")
	cmd.Flags().IntVar(&position, "position", 0, "milestone position")
	_ = cmd.MarkFlagRequired("gig")
	return cmd
}

func categoryCmd() *cobra.Command {
	category := &cobra.Command{Use: "category", Short: "Manage gig categories"}
	var gigID uint64
	add := &cobra.Command{
		Use:   "add <label>...",
		Short: "Tag a gig with categories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				labels, err := e.AddCategories(ctx, viper.GetString("principal"), gigID, args)
				if err != nil {
					return err
				}
				return printJSONOrTable(labels)
			})
		},
	}
	add.Flags().Uint64Var(&gigID, "gig", 0, "gig id")
	_ = add.MarkFlagRequired("gig")
	category.AddCommand(add)
	return category
}

func portfolioCmd() *cobra.Command {
	portfolio := &cobra.Command{Use: "portfolio", Short: "Manage portfolios"}
	portfolio.AddCommand(portfolioSetCmd())
	portfolio.AddCommand(portfolioShowCmd())
	return portfolio
}

func portfolioSetCmd() *cobra.Command {
	var skills []string
	var bio string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace own skills and bio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UpdatePortfolio(ctx, viper.GetString("principal"), skills, bio)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringSliceVar(&skills, "skill", nil, "skill (repeatable)")
	cmd.Flags().StringVar(&bio, "bio", "", "short bio")
	return cmd
}

func portfolioShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <principal>",
		Short: "Show a portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				p, err := r.GetProfile(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func rateCmd() *cobra.Command {
	var score uint64
	cmd := &cobra.Command{
		Use:   "rate <principal>",
		Short: "Rate a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.RateUser(ctx, viper.GetString("principal"), args[0], score)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().Uint64Var(&score, "score", 0, "score")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}

func accountCmd() *cobra.Command {
	account := &cobra.Command{Use: "account", Short: "Manage ledger accounts"}
	account.AddCommand(accountDepositCmd())
	account.AddCommand(accountBalanceCmd())
	return account
}

func accountDepositCmd() *cobra.Command {
	var amount uint64
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit into own account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				acc, err := e.Deposit(ctx, viper.GetString("principal"), amount)
				if err != nil {
					return err
				}
				return printJSONOrTable(acc)
			})
		},
	}
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func accountBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance [principal]",
		Short: "Show account balance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			principal := viper.GetString("principal")
			if len(args) == 1 {
				principal = args[0]
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				acc, err := r.GetAccount(ctx, principal)
				if err != nil {
					return err
				}
				return printJSONOrTable(acc)
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: gig changes, escrow moves, disputes, ratings.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func apikeyCmd() *cobra.Command {
	apikey := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	apikey.AddCommand(apikeyCreateCmd())
	apikey.AddCommand(apikeyListCmd())
	apikey.AddCommand(apikeyDeleteCmd())
	return apikey
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for the acting principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				key := uuid.New().String()
				record := domain.APIKey{
					ID:        uuid.New().String(),
					Principal: viper.GetString("principal"),
					Name:      name,
					KeyHash:   repo.HashAPIKey(key),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := r.InsertAPIKey(ctx, record); err != nil {
					return err
				}
				// The raw key is shown once and never stored.
				return printJSONOrTable(map[string]string{
					"id":        record.ID,
					"principal": record.Principal,
					"key":       key,
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowLegacy bool
	var rps float64
	var burst int
	var corsOrigins []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := app.ResolveConfig(workspace, viper.GetString("ledger"))
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{
				JWTSecret:                  os.Getenv("GIGLEDGER_JWT_SECRET"),
				AllowLegacyPrincipalHeader: allowLegacy,
			}
			if authCfg.JWTSecret == "" && !allowLegacy {
				return fmt.Errorf("GIGLEDGER_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{
				Engine:    e,
				BasePath:  basePath,
				Auth:      authCfg,
				RateLimit: server.RateLimitConfig{RPS: rps, Burst: burst},
			})
			if err != nil {
				return err
			}
			corsHandler := cors.New(cors.Options{
				AllowedOrigins:   corsOrigins,
				AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Api-Key", "X-Principal-Id"},
				AllowCredentials: true,
			}).Handler(handler)
			server.StartWebhookDispatcher(e)
			srv := &http.Server{Addr: addr, Handler: corsHandler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Gigledger API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowLegacy, "allow-legacy-principal-header", false, "trust X-Principal-Id without auth (dev only)")
	cmd.Flags().Float64Var(&rps, "rate-limit", 0, "write requests per second per caller (0 disables)")
	cmd.Flags().IntVar(&burst, "rate-burst", 0, "rate limit burst")
	cmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", []string{"*"}, "allowed CORS origin (repeatable)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := app.ResolveConfig(workspace, viper.GetString("ledger"))
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderGigTable(gigs []domain.Gig) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Title", "Payment", "Owner", "Worker", "Status", "Updated"})
	for _, g := range gigs {
		worker := ""
		if g.Worker != nil {
			worker = *g.Worker
		}
		t.AppendRow(table.Row{g.ID, g.Title, g.Payment, g.Owner, worker, g.Status, g.UpdatedAt})
	}
	t.Render()
}

func parseGigID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid gig id %q", arg)
	}
	return id, nil
}
