package mail_fx

import (
	"go.uber.org/fx"

	"fotolio/internal/config"
	"fotolio/internal/services"
)

var Module = fx.Provide(provideMailService)

func provideMailService(cfg *config.Config) (services.IMailService, error) {
	return services.NewSMTPMailService(services.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		AppName:  "Fotolio",
	})
}
