package recordstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqEscapesQuotes(t *testing.T) {
	require.Equal(t, `{studentName}="Ana"`, Eq("studentName", "Ana"))
	require.Equal(t, `{studentName}="A \"quoted\" name"`, Eq("studentName", `A "quoted" name`))
	require.Equal(t, `{code}="a\\b"`, Eq("code", `a\b`))
}

func TestAndPassesSinglePredicateBare(t *testing.T) {
	require.Equal(t, `{status}="pending"`, And(Eq("status", "pending")))
}

func TestAndCombinesMultiplePredicates(t *testing.T) {
	formula := And(Eq("status", "pending"), Eq("levelId", "l1"))
	require.Equal(t, `AND({status}="pending",{levelId}="l1")`, formula)
}

func TestAndSkipsEmptyPredicates(t *testing.T) {
	require.Equal(t, "", And())
	require.Equal(t, "", And("", ""))
	require.Equal(t, `{taskId}="t1"`, And("", Eq("taskId", "t1")))
}
