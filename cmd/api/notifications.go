package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vitrine/internal/domain/catalog"
	"vitrine/internal/domain/team"
	"vitrine/internal/mailer"
)

const notificationTimeout = 30 * time.Second

// notifyLowStock mails the store address when the product has variants at
// or below the configured threshold and the toggle is on.
func (app *application) notifyLowStock(p *catalog.Product) {
	if p == nil || len(p.Variants) == 0 {
		return
	}
	app.background(func() {
		ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
		defer cancel()

		cfg, err := app.store.Settings.GetOrCreate(ctx)
		if err != nil {
			app.logger.Errorw("low stock check failed", "product", p.ID, "error", err)
			return
		}
		if !cfg.NotifyLowStock || cfg.Email == "" {
			return
		}
		low := catalog.LowStock(p, cfg.LowStockThreshold)
		if len(low) == 0 {
			return
		}

		vars := struct {
			StoreName    string
			ProductTitle string
			Threshold    int
			Variants     []catalog.ProductVariant
			AdminURL     string
		}{
			StoreName:    cfg.StoreName,
			ProductTitle: p.Title,
			Threshold:    cfg.LowStockThreshold,
			Variants:     low,
			AdminURL:     fmt.Sprintf("%s/produtos/%s", strings.TrimRight(app.config.frontendURL, "/"), p.ID),
		}
		if err := app.mailer.Send(mailer.LowStockTemplate, cfg.StoreName, cfg.Email, vars); err != nil {
			app.logger.Errorw("error sending low stock email", "product", p.ID, "error", err)
			return
		}
		app.logger.Infow("low stock email sent", "product", p.ID, "variants", len(low))
	})
}

// notifyNewTeamMember welcomes a freshly created member when the toggle is on.
func (app *application) notifyNewTeamMember(m *team.Member) {
	app.background(func() {
		ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
		defer cancel()

		cfg, err := app.store.Settings.GetOrCreate(ctx)
		if err != nil {
			app.logger.Errorw("team welcome check failed", "member", m.ID, "error", err)
			return
		}
		if !cfg.NotifyNewTeamMember {
			return
		}

		vars := struct {
			Name      string
			StoreName string
			Role      string
			Email     string
			LoginURL  string
		}{
			Name:      m.Name,
			StoreName: cfg.StoreName,
			Role:      string(m.Role),
			Email:     m.Email,
			LoginURL:  strings.TrimRight(app.config.frontendURL, "/") + "/login",
		}
		if err := app.mailer.Send(mailer.TeamWelcomeTemplate, m.FullName(), m.Email, vars); err != nil {
			app.logger.Errorw("error sending welcome email", "member", m.ID, "error", err)
		}
	})
}
