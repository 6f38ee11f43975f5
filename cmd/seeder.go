package cmd

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users, a manager hierarchy, permissions and approval rules for development and testing.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			for _, table := range []string{"expenses", "user_permissions", "permissions", "approval_rules", "users"} {
				if _, err := db.Exec("DELETE FROM " + table); err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		// manager chain: dewi -> budi -> sari -> rina (CFO, no manager)
		rinaID := seedUser(db, "rina@spendflow.io", "Rina Wijaya", string(hash), nil)
		sariID := seedUser(db, "sari@spendflow.io", "Sari Lestari", string(hash), &rinaID)
		budiID := seedUser(db, "budi@spendflow.io", "Budi Santoso", string(hash), &sariID)
		dewiID := seedUser(db, "dewi@spendflow.io", "Dewi Anggraini", string(hash), &budiID)
		// orphaned submitter with no manager, exercises auto-approval
		soloID := seedUser(db, "solo@spendflow.io", "Solo Contractor", string(hash), nil)

		permissions := []struct {
			Name string
			Desc string
		}{
			{"approve_expenses", "Can approve and reject expenses"},
			{"view_all_expenses", "Can view every user's expenses"},
			{"manage_approval_rules", "Can administer approval rules"},
		}

		for _, p := range permissions {
			var pid int64
			if err := db.QueryRow("SELECT id FROM permissions WHERE name = $1", p.Name).Scan(&pid); err != nil {
				if _, err := db.Exec("INSERT INTO permissions (name, description, created_at) VALUES ($1, $2, now())", p.Name, p.Desc); err != nil {
					log.Fatalf("failed to insert permission %s: %v", p.Name, err)
				}
			}
		}

		managerPerms := []string{"approve_expenses", "view_all_expenses"}
		for _, managerID := range []int64{rinaID, sariID, budiID} {
			for _, permName := range managerPerms {
				grantPermission(db, managerID, permName)
			}
		}
		grantPermission(db, rinaID, "manage_approval_rules")

		fmt.Println("Granted manager permissions")

		rules := []struct {
			Name      string
			MinCents  int64
			MaxCents  *int64
			Levels    int
		}{
			{"small purchases", 50_00, ptrInt64(500_00), 1},
			{"medium purchases", 500_01, ptrInt64(5000_00), 2},
			{"large purchases", 5000_01, nil, 3},
		}

		for _, r := range rules {
			var rid int64
			if err := db.QueryRow("SELECT id FROM approval_rules WHERE name = $1", r.Name).Scan(&rid); err != nil {
				if _, err := db.Exec(
					"INSERT INTO approval_rules (name, min_amount_cents, max_amount_cents, cost_center_id, levels_required, is_active, created_at, updated_at) VALUES ($1, $2, $3, NULL, $4, true, now(), now())",
					r.Name, r.MinCents, r.MaxCents, r.Levels); err != nil {
					log.Fatalf("failed to insert approval rule %s: %v", r.Name, err)
				}
				fmt.Printf("Seeded approval rule: %s\n", r.Name)
			}
		}

		fmt.Printf("Seeded users: dewi=%d budi=%d sari=%d rina=%d solo=%d\n", dewiID, budiID, sariID, rinaID, soloID)
		fmt.Println("Seed complete")
	},
}

func seedUser(db *sqlx.DB, email, name, passwordHash string, managerID *int64) int64 {
	var id int64
	if err := db.QueryRow("SELECT id FROM users WHERE email = $1", email).Scan(&id); err == nil {
		return id
	}

	err := db.QueryRow(
		"INSERT INTO users (email, name, password_hash, manager_id, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, true, now(), now()) RETURNING id",
		email, name, passwordHash, managerID).Scan(&id)
	if err != nil {
		log.Fatalf("failed to insert user %s: %v", email, err)
	}

	fmt.Println("Seeded user:", email)
	return id
}

func grantPermission(db *sqlx.DB, userID int64, permName string) {
	var pid int64
	if err := db.QueryRow("SELECT id FROM permissions WHERE name = $1", permName).Scan(&pid); err != nil {
		log.Fatalf("permission not found %s: %v", permName, err)
	}

	var exists int
	if err := db.QueryRow("SELECT 1 FROM user_permissions WHERE user_id = $1 AND permission_id = $2", userID, pid).Scan(&exists); err == nil {
		return
	}

	if _, err := db.Exec("INSERT INTO user_permissions (user_id, permission_id, granted_by, created_at) VALUES ($1, $2, NULL, now())", userID, pid); err != nil {
		log.Fatalf("failed to grant permission %s to user %d: %v", permName, userID, err)
	}
}

func ptrInt64(v int64) *int64 {
	return &v
}
