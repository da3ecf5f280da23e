package helpers

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/facsim-go/internal/adapters/persistence"
	"github.com/andrescamacho/facsim-go/internal/infrastructure/database"
)

// SharedTestDB is the run store shared by every BDD scenario
var SharedTestDB *gorm.DB

// InitializeSharedTestDB creates and migrates the shared test database.
// Called once in TestMain.
func InitializeSharedTestDB() error {
	db, err := database.NewTestConnection()
	if err != nil {
		return fmt.Errorf("failed to open shared test database: %w", err)
	}
	SharedTestDB = db
	return nil
}

// TruncateAllTables clears every run table, children first
func TruncateAllTables() error {
	if SharedTestDB == nil {
		return fmt.Errorf("shared test database not initialized")
	}

	for _, model := range []interface{ TableName() string }{
		persistence.FacilityLogModel{},
		persistence.FacilitySnapshotModel{},
		persistence.SimulationRunModel{},
	} {
		if err := SharedTestDB.Exec(fmt.Sprintf("DELETE FROM %s", model.TableName())).Error; err != nil {
			return fmt.Errorf("failed to truncate %s: %w", model.TableName(), err)
		}
	}
	return nil
}

// CloseSharedTestDB closes the shared database connection.
// Called in TestMain after all tests complete.
func CloseSharedTestDB() error {
	if SharedTestDB == nil {
		return nil
	}
	err := database.Close(SharedTestDB)
	SharedTestDB = nil
	return err
}
