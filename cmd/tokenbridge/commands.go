package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appv2 "github.com/dropDatabas3/tokenbridge/internal/app/v2"
	"github.com/dropDatabas3/tokenbridge/internal/bridge"
	"github.com/dropDatabas3/tokenbridge/internal/config"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
	"github.com/dropDatabas3/tokenbridge/internal/security/token"
)

func newRootCmd() *cobra.Command {
	var out string

	root := &cobra.Command{
		Use:           "tokenbridge",
		Short:         "Gateway y herramientas para tokens bearer del identity provider",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVar(&out, "out", "text", "Formato de salida: json|text")

	root.AddCommand(
		newServeCmd(),
		newEncodeCmd(),
		newDecodeCmd(&out),
		newSplitCmd(&out),
	)
	return root
}

func newServeCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath == "" {
				cfgPath = config.PathFromEnv()
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: cfg.App.ServiceName,
				Version:     version,
			})
			defer func() { _ = logger.Sync() }()

			app, err := appv2.New(cfg, version)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "Ruta al config.yaml (env CONFIG_PATH)")
	return cmd
}

func newEncodeCmd() *cobra.Command {
	var c token.CredentialSet
	var bearer bool
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Codifica access-token, client y uid en un token opaco",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := token.Encode(c)
			if errors.Is(err, token.ErrIncompleteCredentials) {
				return fmt.Errorf("encode: --access-token, --client y --uid son requeridos: %w", err)
			}
			if err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			if bearer {
				s = "Bearer " + s
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), s)
			return err
		},
	}
	cmd.Flags().StringVar(&c.AccessToken, "access-token", "", "Valor del header access-token")
	cmd.Flags().StringVar(&c.Client, "client", "", "Valor del header client")
	cmd.Flags().StringVar(&c.UID, "uid", "", "Valor del header uid")
	cmd.Flags().BoolVar(&bearer, "bearer", false, "Imprimir listo para el header Authorization")
	return cmd
}

func newDecodeCmd(out *string) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Decodifica un token opaco a sus tres credenciales",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := token.Decode(args[0])
			if err != nil {
				return describeDecodeError(err)
			}
			return printCredentials(cmd.OutOrStdout(), *out, c)
		},
	}
}

func newSplitCmd(out *string) *cobra.Command {
	return &cobra.Command{
		Use:   "split <authorization-header>",
		Short: "Muestra los headers que el gateway enviaría al provider",
		Long: "Recibe el valor completo del header Authorization (\"Bearer <token>\") y\n" +
			"aplica el mismo decoder que el gateway antes de reenviar el request.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := http.Header{}
			h.Set(bridge.HeaderAuthorization, args[0])
			patch, err := bridge.DecodeRequest(h)
			if err != nil {
				return describeDecodeError(err)
			}
			c, _ := patch.Credentials()
			return printCredentials(cmd.OutOrStdout(), *out, c)
		},
	}
}

func describeDecodeError(err error) error {
	if stage := token.StageOf(err); stage != "" {
		return fmt.Errorf("token inválido (etapa %s): %w", stage, err)
	}
	return err
}

func printCredentials(w io.Writer, format string, c token.CredentialSet) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}
	for i, name := range token.CredentialHeaders {
		if _, err := fmt.Fprintf(w, "%s: %s\n", name, c.Values()[i]); err != nil {
			return err
		}
	}
	return nil
}
