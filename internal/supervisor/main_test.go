package supervisor

import (
	"os"
	"testing"

	"github.com/m3rciful/premiumbot/core/logger"
)

func TestMain(m *testing.M) {
	// The supervisor logs through the package-global component loggers,
	// which are nil until InitLogger wires them.
	_ = logger.InitLogger(logger.Options{Level: "error"})
	os.Exit(m.Run())
}
