package modal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshots(t *testing.T) {
	payload := `[
		{"tag":"div","id":"promo","classes":["popup","open"],"selector":"#promo",
		 "position":"fixed","z_index":1500,"x":433,"y":184,"width":500,"height":400,
		 "viewport_width":1366,"viewport_height":768,"text":"Subscribe now",
		 "has_input":true,"has_button":true,"has_form":true,"visible":true,
		 "signature":"DIV#promo.popup.open@433,184,500,400","new":true},
		{"tag":"section","classes":[],"selector":"section","position":"static",
		 "z_index":0,"visible":false}
	]`
	snaps := decodeSnapshots(payload)
	require.Len(t, snaps, 2)

	s := snaps[0]
	assert.Equal(t, "div", s.Tag)
	assert.Equal(t, "promo", s.ID)
	assert.Equal(t, []string{"popup", "open"}, s.Classes)
	assert.Equal(t, 1500, s.ZIndex)
	assert.Equal(t, 500.0, s.Width)
	assert.True(t, s.New)
	assert.True(t, s.Visible)
	assert.Equal(t, "popup", s.PrimaryClass())

	assert.False(t, snaps[1].Visible)
	assert.Empty(t, snaps[1].PrimaryClass())
}

func TestDecodeSnapshotsMalformed(t *testing.T) {
	assert.Nil(t, decodeSnapshots(`{"not":"an array"}`))
	assert.Nil(t, decodeSnapshots(`garbage`))
	assert.Nil(t, decodeSnapshots(``))
}

func TestDecodeElementState(t *testing.T) {
	st := decodeElementState(`{"x":10,"y":20,"width":300,"height":200,
		"content_length":512,"text":"hello","loading":false}`)
	assert.True(t, st.Found)
	assert.Equal(t, 300.0, st.Width)
	assert.Equal(t, 512, st.ContentLength)
	assert.Equal(t, "hello", st.Text)
	assert.False(t, st.Loading)

	// the agent returns null when the element is gone
	gone := decodeElementState(`null`)
	assert.False(t, gone.Found)
}

func TestSameLayout(t *testing.T) {
	a := elementState{X: 1, Y: 2, Width: 300, Height: 200, ContentLength: 50, Found: true}
	b := a
	assert.True(t, a.sameLayout(b))

	b.ContentLength = 51
	assert.False(t, a.sameLayout(b))

	c := a
	c.Width = 301
	assert.False(t, a.sameLayout(c))

	// a vanished element never compares stable
	assert.False(t, a.sameLayout(elementState{}))
}
