package tournament_integration_tests

import (
	"testing"

	"github.com/42core-team/arena/integration_tests/testutils"
)

func TestMain(m *testing.M) {
	testutils.Main(m)
}
