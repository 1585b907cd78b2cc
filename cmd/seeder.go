package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/department"
	"github.com/leavedesk/leave-management/internal/employee"
	"github.com/leavedesk/leave-management/internal/settings"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		pool, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer pool.Close()

		db, err := initGorm(cfg.Database, pool)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"audit_logs", "leave_requests", "employees", "departments", "settings"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		now := time.Now()

		dept := &department.Department{
			ID:        uuid.NewString(),
			Name:      "Engineering",
			CreatedAt: now,
			UpdatedAt: now,
		}
		var existingDept department.Department
		if err := db.Where("name = ?", dept.Name).First(&existingDept).Error; err == nil {
			dept = &existingDept
			fmt.Println("Engineering department already exists")
		} else if err := db.Create(dept).Error; err != nil {
			log.Fatalf("failed to seed department: %v", err)
		} else {
			fmt.Println("Seeded department:", dept.Name)
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)

		seedEmployee := func(email, name string, role internal.Role, deptID *string) {
			var existing employee.Employee
			if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
				fmt.Println("employee already exists:", email)
				return
			}
			emp := &employee.Employee{
				ID:                uuid.NewString(),
				Email:             email,
				Name:              name,
				PasswordHash:      string(hash),
				Role:              role,
				Status:            employee.StatusActive,
				DepartmentID:      deptID,
				VacationAllowance: 20,
				PersonalAllowance: 5,
				SickAllowance:     settings.UnlimitedAllowance,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := db.Create(emp).Error; err != nil {
				log.Fatalf("failed to seed employee %s: %v", email, err)
			}
			fmt.Println("Seeded employee:", email)
		}

		seedEmployee("admin@leavedesk.dev", "Site Admin", internal.RoleAdmin, nil)
		seedEmployee("dana@leavedesk.dev", "Dana Whitcomb", internal.RoleEmployee, &dept.ID)
		seedEmployee("milo@leavedesk.dev", "Milo Ferris", internal.RoleEmployee, &dept.ID)
	},
}
