package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/talent-pipeline/internal/config"
	"github.com/jonathan/talent-pipeline/internal/rbac"
	"github.com/jonathan/talent-pipeline/internal/server"
)

var (
	tokenUser    string
	tokenCompany string
	tokenRole    string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for local development",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User ID (required)")
	tokenCmd.Flags().StringVar(&tokenCompany, "company", "", "Company ID (required)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(rbac.RoleRecruiter), "Role: admin, hiring_manager or recruiter")
	_ = tokenCmd.MarkFlagRequired("user")
	_ = tokenCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	p, err := parsePrincipal(tokenUser, tokenCompany, tokenRole)
	if err != nil {
		return err
	}
	cfg, err := config.LoadJWT()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(*cfg).GenerateToken(p)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func parsePrincipal(user, company, role string) (rbac.Principal, error) {
	userID, err := uuid.Parse(user)
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("invalid --user: %w", err)
	}
	companyID, err := uuid.Parse(company)
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("invalid --company: %w", err)
	}
	r, err := rbac.ParseRole(role)
	if err != nil {
		return rbac.Principal{}, err
	}
	return rbac.Principal{UserID: userID, CompanyID: companyID, Role: r}, nil
}
