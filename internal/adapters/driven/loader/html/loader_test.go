package html

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/localrag/internal/core/domain"
)

func writeHTML(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ExtractsVisibleText(t *testing.T) {
	path := writeHTML(t, "page.html", `<html>
<head><title> Field Guide </title><style>p { color: red; }</style></head>
<body>
<script>var x = "hidden";</script>
<h1>Birds</h1>
<p>Owls hunt  at night.</p><p>Larks sing &amp; fly.</p>
<ul><li>one</li><li>two</li></ul>
</body></html>`)

	docs, err := New(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "Birds\nOwls hunt at night.\nLarks sing & fly.\none\ntwo", docs[0].Content)
	assert.Equal(t, "Field Guide", docs[0].Title)
	assert.Equal(t, 0, docs[0].Page)
	assert.Equal(t, "html", docs[0].Metadata[domain.MetaFormat])
	assert.Equal(t, path, docs[0].Metadata[domain.MetaSource])
}

func TestLoad_TitleFallsBackToFilename(t *testing.T) {
	path := writeHTML(t, "user_guide-v2.html", "<p>text</p>")

	docs, err := New(path).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "user guide v2", docs[0].Title)
	assert.Equal(t, "text", docs[0].Content)
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.html")

	_, err := New(missing).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
