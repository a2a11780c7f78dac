package cli

import (
	"time"

	"github.com/spf13/cobra"

	"discipline-journal/internal/api"
)

func newTokenCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Long: `Issue an HS256 bearer token signed with the configured jwt_secret.

The token subject is the user ID every API call is scoped to.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.ValidateServe(); err != nil {
				return err
			}
			user, _ := cmd.Flags().GetString("user")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			auth := app.authConfig()
			auth.TTL = ttl
			now := time.Now()
			token, err := api.IssueToken(auth, user, now)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"token":      token,
					"user_id":    user,
					"expires_at": now.Add(ttl).UTC(),
				})
			}
			output.Println(token)
			return nil
		},
	}
	cmd.Flags().String("user", "", "user ID the token authenticates")
	cmd.Flags().Duration("ttl", 30*24*time.Hour, "token lifetime")
	cmd.MarkFlagRequired("user")
	return cmd
}

func (a *App) authConfig() api.AuthConfig {
	return api.AuthConfig{
		Secret:   []byte(a.Config.Credentials.JWTSecret),
		Issuer:   a.Config.Auth.Issuer,
		Audience: a.Config.Auth.Audience,
	}
}
