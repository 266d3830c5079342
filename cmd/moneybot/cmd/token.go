package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/moneybot/internal/auth"
	"github.com/mmynk/moneybot/internal/config"
)

const tokenTTL = 24 * time.Hour

var (
	operator string
	ttl      time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the admin API",
	Long: `Mint a bearer token for the admin API signed with ADMIN_JWT_SECRET.

Example:
  moneybot token --operator ops --ttl 1h`,
	Run: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&operator, "operator", "", "operator name recorded in the token")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", tokenTTL, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("operator")
}

func runToken(cmd *cobra.Command, args []string) {
	exitOnError(config.LoadEnv(envFile), "failed to load environment")

	secret := os.Getenv(config.EnvAdminSecret)
	if secret == "" {
		exitOnError(errors.New(config.EnvAdminSecret+" is not set"), "invalid configuration")
	}

	token, err := auth.NewJWTManager(secret, ttl).Generate(operator)
	exitOnError(err, "failed to generate token")
	fmt.Println(token)
}
