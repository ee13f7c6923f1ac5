package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/service"
)

var (
	createName     string
	createRole     string
	createPassword string

	listRole       string
	listActiveOnly bool
	listLimit      int
)

var createCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create an active staff account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := domain.ParseStaffRole(createRole)
		if err != nil {
			return err
		}
		svc, cleanup, err := staffService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		staff, err := svc.CreateStaffMember(cmd.Context(), service.CreateStaffInput{
			Email:     args[0],
			StaffName: createName,
			Password:  createPassword,
			Role:      role,
		})
		if err != nil {
			return fmt.Errorf("failed to create staff: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created staff %d (%s, %s)\n", staff.ID, staff.Email, staff.Role)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List staff accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		filters := service.StaffListFilters{Limit: listLimit}
		if listRole != "" {
			role, err := domain.ParseStaffRole(listRole)
			if err != nil {
				return err
			}
			filters.Role = &role
		}
		if listActiveOnly {
			active := true
			filters.Active = &active
		}

		svc, cleanup, err := staffService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		staff, err := svc.ListStaffMembers(cmd.Context(), filters)
		if err != nil {
			return fmt.Errorf("failed to list staff: %w", err)
		}
		printStaff(cmd, staff)
		return nil
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Deactivate a staff account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid staff id %q", args[0])
		}
		svc, cleanup, err := staffService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		staff, err := svc.DeactivateStaffMember(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to deactivate staff: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deactivated staff %d (%s)\n", staff.ID, staff.Email)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "Display name")
	createCmd.Flags().StringVar(&createRole, "role", "", "Role: admin, marketer, sales, artist, front_desk")
	createCmd.Flags().StringVar(&createPassword, "password", "", "Initial password")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("role")
	_ = createCmd.MarkFlagRequired("password")

	listCmd.Flags().StringVar(&listRole, "role", "", "Only list this role")
	listCmd.Flags().BoolVar(&listActiveOnly, "active", false, "Only list active staff")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum rows")
}

func printStaff(cmd *cobra.Command, staff []domain.StaffRecord) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tACTIVE\tCREATED AT")
	for _, s := range staff {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n", s.ID, s.Email, s.StaffName, s.Role, s.IsActive, s.CreatedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
}
