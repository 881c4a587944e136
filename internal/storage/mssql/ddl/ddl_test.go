package ddl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shpetl/internal/schema"
)

type execRepo struct{ stmts []string }

func (r *execRepo) CopyFrom(context.Context, []string, [][]any) (int64, error) { return 0, nil }
func (r *execRepo) Exec(_ context.Context, sql string) error {
	r.stmts = append(r.stmts, sql)
	return nil
}
func (r *execRepo) Close() {}

var placeCols = schema.Schema{
	{Name: "NAME", Type: schema.TypeString},
	{Name: "POP", Type: schema.TypeInt},
	{Name: "geog", Type: schema.TypeGeography},
}

func TestMapType(t *testing.T) {
	t.Parallel()

	for _, typ := range []schema.Type{
		schema.TypeString, schema.TypeInt, schema.TypeFloat, schema.TypeBool,
		schema.TypeDate, schema.TypeGeometry, schema.TypeGeography, schema.TypeDuration,
	} {
		assert.NotEmpty(t, MapType(typ), "type %s", typ)
	}
	assert.Empty(t, MapType("uuid"))
}

func TestEnsureTable(t *testing.T) {
	t.Parallel()

	repo := &execRepo{}
	require.NoError(t, EnsureTable(context.Background(), repo, "dbo.places", placeCols))
	require.Len(t, repo.stmts, 1)
	assert.Equal(t, "IF OBJECT_ID(N'[dbo].[places]', N'U') IS NULL\nBEGIN\n  CREATE TABLE [dbo].[places] (\n    [NAME] NVARCHAR(MAX),\n    [POP] BIGINT,\n    [geog] VARBINARY(MAX)\n  );\nEND;", repo.stmts[0])

	assert.Error(t, EnsureTable(context.Background(), repo, "", placeCols))
	assert.Len(t, repo.stmts, 1, "nothing executed on error")
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[weird]]id]", quoteIdent("weird]id"))
	assert.Equal(t, "[dbo].[it's]", Dialect.QuoteFQN("dbo.it's"))
}
