package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/siwauth/internal/token"
	"github.com/dropDatabas3/siwauth/internal/util/atomicwrite"
)

// ─────────────────────────────────────────────────────────────────────────────
// keys: herramienta de línea de comandos para el material de firma.
// Genera pares RSA-2048 en formato JWK e inspecciona material existente.
// ─────────────────────────────────────────────────────────────────────────────

func main() {
	root := &cobra.Command{
		Use:          "keys",
		Short:        "Gestión del material de firma (JWK RSA)",
		SilenceUsage: true,
	}
	root.AddCommand(newGenerateCmd(), newInspectCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newGenerateCmd() *cobra.Command {
	var kid, outDir string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Genera un par RSA-2048 nuevo en formato JWK",
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := token.NewDevRSA(kid)
			if err != nil {
				return fmt.Errorf("generando clave: %w", err)
			}

			pub, err := json.MarshalIndent(ks.PublicJWK(), "", "  ")
			if err != nil {
				return err
			}
			priv, err := json.MarshalIndent(ks.PrivateJWK(), "", "  ")
			if err != nil {
				return err
			}

			if outDir == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "# pública")
				fmt.Fprintln(cmd.OutOrStdout(), string(pub))
				fmt.Fprintln(cmd.OutOrStdout(), "# privada")
				fmt.Fprintln(cmd.OutOrStdout(), string(priv))
				return nil
			}

			pubPath := outDir + "/jwk_public.json"
			privPath := outDir + "/jwk_private.json"
			if err := atomicwrite.WriteFile(pubPath, pub, 0o644); err != nil {
				return err
			}
			// La privada nunca con permisos de grupo.
			if err := atomicwrite.WriteFile(privPath, priv, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kid=%s\n%s\n%s\n", ks.KID, pubPath, privPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&kid, "kid", "", "identificador de clave (default: uuid)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directorio de salida (default: stdout)")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <jwk.json>",
		Short: "Muestra kid, tipo y alcance (pública/privada) de un JWK",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var j token.JWK
			if err := json.Unmarshal(data, &j); err != nil {
				return fmt.Errorf("JWK inválido: %w", err)
			}
			scope := "pública"
			if j.D != "" {
				scope = "privada"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kid=%s kty=%s alg=%s use=%s material=%s\n",
				j.Kid, j.Kty, j.Alg, j.Use, scope)

			// Chequeo de carga completo: si es privada tiene que poder
			// reconstruirse como par válido.
			if scope == "privada" {
				pj, _ := json.Marshal(token.JWK{Kty: j.Kty, Alg: j.Alg, Kid: j.Kid, N: j.N, E: j.E})
				if _, err := token.LoadKeySet(pj, data); err != nil {
					return fmt.Errorf("el par no carga: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "par verificado: carga y firma OK")
			}
			return nil
		},
	}
}
