package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDockerInspectLines(t *testing.T) {
	out := "4521\t/web-frontend\tnginx:1.27\n" +
		"4590\t/postgres-main\tpostgres:16\n" +
		"0\t/created-not-started\tredis:7\n" +
		"\n"

	containers := parseDockerInspectLines(out)
	require.Len(t, containers, 2)

	assert.Equal(t, "web-frontend", containers[4521].Name)
	assert.Equal(t, "nginx:1.27", containers[4521].Image)
	assert.Equal(t, "postgres-main", containers[4590].Name)
	assert.NotContains(t, containers, 0)
}

func TestParseDockerInspectLinesGarbage(t *testing.T) {
	containers := parseDockerInspectLines("Cannot connect to the Docker daemon\n")
	assert.Empty(t, containers)
}
