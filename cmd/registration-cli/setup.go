package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"ms-registration/internal/app"
	"ms-registration/internal/config"
	"ms-registration/internal/dashsheet"
	"ms-registration/internal/email"
	"ms-registration/internal/logger"
	"ms-registration/internal/registration"

	"github.com/spf13/cobra"
)

type check struct {
	name   string
	ok     bool
	detail string
	// required checks fail the command; others only warn
	required bool
}

func verifySetupCmd(newLogger loggerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-setup",
		Short: "Check configuration, row store access and the dash sheet template",
		Long: `Verify every integration the service depends on:
- Stripe keys and webhook secret
- Row store credentials and column read access
- Email provider selection
- Dash sheet template placeholders and renderer`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			checks := runChecks(ctx, loadConfig(), newLogger(cmd))
			failed := printChecks(cmd.OutOrStdout(), checks)
			if failed > 0 {
				return fmt.Errorf("%d required check(s) failed", failed)
			}
			return nil
		},
	}
}

func runChecks(ctx context.Context, cfg *config.Config, log *logger.Logger) []check {
	var checks []check
	add := func(name string, required bool, ok bool, detail string) {
		checks = append(checks, check{name: name, ok: ok, detail: detail, required: required})
	}

	add("Stripe secret key", true, cfg.Stripe.SecretKey != "", keyStatus(cfg.Stripe.SecretKey))
	add("Stripe webhook secret", true, cfg.Stripe.WebhookSecret != "", keyStatus(cfg.Stripe.WebhookSecret))
	add("Admin key", false, cfg.AdminKey != "", keyStatus(cfg.AdminKey))
	add("Poker Run limit", false, true, fmt.Sprintf("%d", cfg.Event.PokerRunLimit))

	rows, closeRows, err := app.OpenRowSource(ctx, cfg, log)
	if err != nil {
		add("Row store", true, false, fmt.Sprintf("%s: %v", cfg.RowStore.Driver, err))
	} else {
		cells, err := rows.ReadColumn(ctx, registration.EntryCountColumn)
		if err != nil {
			add("Row store", true, false, fmt.Sprintf("%s: read failed: %v", cfg.RowStore.Driver, err))
		} else {
			add("Row store", true, true, fmt.Sprintf("%s: %d row(s) including header", cfg.RowStore.Driver, len(cells)))
		}
		_ = closeRows()
	}

	tr, err := email.SelectTransport(cfg.Email)
	if err != nil {
		add("Email", true, false, err.Error())
	} else {
		from, _ := email.FromAddress(cfg.Email)
		admin, _ := email.AdminAddress(cfg.Email)
		add("Email", true, true, fmt.Sprintf("%s via %s:%d, from %s, admin %s", tr.Provider, tr.Host, tr.Port, from, admin))
	}

	tmpl, err := dashsheet.LoadTemplate(cfg.DashSheet.TemplatePath, cfg.DashSheet.LogoPath)
	if err != nil {
		add("Dash sheet template", true, false, err.Error())
	} else if missing := tmpl.MissingPlaceholders(); len(missing) > 0 {
		add("Dash sheet template", true, false, "missing placeholders: "+strings.Join(missing, ", "))
	} else {
		detail := "all placeholders present"
		if !tmpl.HasLogoReference() {
			detail += ", no logo reference"
		}
		add("Dash sheet template", true, true, detail)
	}

	switch {
	case cfg.DashSheet.PDFShiftAPIKey != "":
		add("Dash sheet renderer", true, true, "PDFShift")
	default:
		_, err := dashsheet.NewLocalRenderer(cfg.DashSheet.FontPath, log)
		if err != nil {
			add("Dash sheet renderer", true, false, err.Error())
		} else {
			add("Dash sheet renderer", true, true, "local ("+cfg.DashSheet.FontPath+")")
		}
	}

	add("Redis event guard", false, cfg.Redis.Addr != "", valueOr(cfg.Redis.Addr, "disabled"))
	kafkaDetail := "disabled"
	if cfg.Kafka.Enabled {
		kafkaDetail = strings.Join(cfg.Kafka.Brokers, ",") + " -> " + cfg.Kafka.Topics.Registrations
	}
	add("Kafka events", false, cfg.Kafka.Enabled, kafkaDetail)
	return checks
}

func printChecks(w io.Writer, checks []check) int {
	fmt.Fprintln(w, "Registration Setup")
	fmt.Fprintln(w, strings.Repeat("=", 40))
	failed := 0
	for _, c := range checks {
		mark := "OK  "
		if !c.ok {
			mark = "WARN"
			if c.required {
				mark = "FAIL"
				failed++
			}
		}
		fmt.Fprintf(w, "[%s] %-22s %s\n", mark, c.name, c.detail)
	}
	return failed
}

func keyStatus(v string) string {
	if v == "" {
		return "not set"
	}
	return "set"
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
