package jsdoc

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRejectsNonDocComments(t *testing.T) {
	_, ok := Parse(" plain block comment ")
	assert.False(t, ok)

	_, ok = Parse("")
	assert.False(t, ok)
}

func TestParseParamsAndReturns(t *testing.T) {
	raw := Strip(`/**
	 * Finds a user by email.
	 *
	 * @param {string} email - The address to look up.
	 * @param {boolean|number} [strict] whether to match exactly
	 * @returns {Promise<$UserInstance|void>} the user, if any
	 */`)

	doc, ok := Parse(raw)
	require.True(t, ok)

	assert.Equal(t, "Finds a user by email.", doc.Description)
	require.Len(t, doc.Parameters, 2)
	assert.Equal(t, Param{Name: "email", Types: []string{"string"}, Description: "The address to look up."}, doc.Parameters[0])
	assert.Equal(t, Param{Name: "strict", Types: []string{"boolean", "number"}, Description: "whether to match exactly", Optional: true}, doc.Parameters[1])

	require.NotNil(t, doc.Returns)
	assert.Equal(t, []string{"Promise<$UserInstance|void>"}, doc.Returns.Types)
	assert.Equal(t, "the user, if any", doc.Returns.Description)
	assert.Empty(t, doc.Annotations)
}

func TestParseKeepsOtherTagsInOrder(t *testing.T) {
	doc, ok := Parse("* Old helper.\n * @deprecated use find instead\n * @private\n * @see other")
	require.True(t, ok)

	want := []Annotation{
		{Tag: "@deprecated", Value: "use find instead"},
		{Tag: "@private"},
		{Tag: "@see", Value: "other"},
	}
	if diff := cmp.Diff(want, doc.Annotations); diff != "" {
		t.Fatalf("annotations mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDropsUnparsableParam(t *testing.T) {
	doc, ok := Parse("* @param {string} - missing name\n * @param\n * @param {number} count")
	require.True(t, ok)

	require.Len(t, doc.Parameters, 1)
	assert.Equal(t, "count", doc.Parameters[0].Name)
}

func TestParseHonoursFirstReturnsOnly(t *testing.T) {
	doc, ok := Parse("* @returns {string} first\n * @returns {number} second")
	require.True(t, ok)

	require.NotNil(t, doc.Returns)
	assert.Equal(t, []string{"string"}, doc.Returns.Types)
	assert.Equal(t, "first", doc.Returns.Description)
}

func TestParseRestParamType(t *testing.T) {
	doc, ok := Parse("* @param {...string} names")
	require.True(t, ok)

	require.Len(t, doc.Parameters, 1)
	assert.Equal(t, []string{"...string"}, doc.Parameters[0].Types)
}

func TestSerializeLayout(t *testing.T) {
	doc := &Doc{
		Description: "Sends a message.",
		Parameters: []Param{
			{Name: "to", Types: []string{"string"}, Description: "recipient"},
			{Name: "body", Types: []string{"string", "object"}, Optional: true},
		},
		Annotations: []Annotation{{Tag: "@async"}},
		Returns:     &Returns{Types: []string{"boolean"}, Description: "sent"},
	}

	want := "/**" +
		"\n   * Sends a message." +
		"\n   *" +
		"\n   * @param {string} to - recipient" +
		"\n   *" +
		"\n   * @param {string|object} [body]" +
		"\n   *" +
		"\n   * @async" +
		"\n   *" +
		"\n   * @returns {boolean} - sent" +
		"\n   */"
	assert.Equal(t, want, Serialize(doc))
}

func TestSerializeNil(t *testing.T) {
	assert.Equal(t, "", Serialize(nil))
	assert.Equal(t, "/**\n   */", Serialize(&Doc{}))
}

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"* Simple description only.",
		"* Multi line\n * description here.\n * @param {string} a - first\n * @param b second without type\n * @param {Promise<string|number>} [c] - wrapped",
		"* @returns {$PetInstance[]} all pets",
		"* Does things.\n * @since 1.2.0\n * @param {number} [limit]\n * @throws {Error} when broken\n * @returns nothing useful",
		"*\n * @deprecated\n * @param {...any} rest - remaining args\n * @example foo(1, 2)",
		"* @returns {string} - - negative offset",
		"* @returns - -1 when absent",
		"* @param {number} delta - - signed change",
	}

	for _, raw := range cases {
		first, ok := Parse(raw)
		require.True(t, ok, raw)

		second, ok := Parse(Strip(Serialize(first)))
		require.True(t, ok, raw)

		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("round trip changed %q (-first +second):\n%s", raw, diff)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc, ok := Parse("* @param {string} a\n * @returns {number}")
	require.True(t, ok)

	clone := doc.Clone()
	clone.Parameters[0].Types[0] = "any"
	clone.Returns.Types[0] = "any"
	clone.Annotations = append(clone.Annotations, Annotation{Tag: TagAsync})

	assert.Equal(t, "string", doc.Parameters[0].Types[0])
	assert.Equal(t, "number", doc.Returns.Types[0])
	assert.Empty(t, doc.Annotations)
}
