package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"venue-recommender/internal/models"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(stdin)
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"ask"}, args...))
	return out.String(), err
}

// ==========================
// query
// ==========================

func TestQueryCommand(t *testing.T) {
	t.Run("prints the reply and recommendations", func(t *testing.T) {
		out, err := run(t, "", "query", "--embedding", "none", "vreau", "pizza", "italiana")
		require.NoError(t, err)
		assert.Contains(t, out, "Pizza Bella")
		assert.Contains(t, out, "intent=")
	})

	t.Run("json output", func(t *testing.T) {
		out, err := run(t, "", "query", "--json", "salut")
		require.NoError(t, err)

		var res models.TurnResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, models.IntentGreeting, res.Intent)
		assert.Empty(t, res.Recommendations)
		assert.Equal(t, models.StateDelivered, res.FinalState)
	})

	t.Run("missing query", func(t *testing.T) {
		_, err := run(t, "", "query")
		assert.Error(t, err)
	})
}

// ==========================
// chat
// ==========================

func TestChatCommand(t *testing.T) {
	stdin := strings.Join([]string{
		"vreau pizza italiana",
		"",
		"/summary",
		"/reset",
		"vreau pizza italiana",
	}, "\n")

	out, err := run(t, stdin, "chat", "--embedding", "none")
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(out, "Pizza Bella"), out)
	assert.Contains(t, out, "(session reset)")
	assert.Contains(t, out, `"turnCount": 2`)
}
