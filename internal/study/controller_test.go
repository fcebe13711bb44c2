package study

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/importer"
	"github.com/conorfennell/recall/internal/review"
)

var cards = []domain.Card{
	{Front: "uno", Back: "one"},
	{Front: "dos", Back: "two"},
	{Front: "tres", Back: "three"},
}

func loaded(t *testing.T) *Controller {
	t.Helper()
	c := New(WithRand(rand.New(rand.NewPCG(1, 1))))
	ticket, err := c.BeginUpload("numbers.xlsx", 1024)
	require.NoError(t, err)
	require.True(t, c.CompleteUpload(ticket, "numbers.xlsx", cards, nil))
	return c
}

func TestController_UploadAndStart(t *testing.T) {
	c := loaded(t)

	v := c.View()
	assert.Equal(t, PhaseImport, v.Phase)
	assert.Equal(t, "numbers.xlsx", v.FileName)
	assert.Equal(t, 3, v.CardCount)
	assert.True(t, v.Loaded())

	require.NoError(t, c.Start(importer.Options{}))
	v = c.View()
	assert.True(t, v.Reviewing())
	assert.Equal(t, "uno", v.Face)
	assert.Equal(t, 1, v.Position)
	assert.Equal(t, 3, v.Total)
	assert.True(t, v.IsFirst)
	assert.True(t, c.Listening())
}

func TestController_ValidationError(t *testing.T) {
	c := New()

	_, err := c.BeginUpload("numbers.csv", 1024)
	require.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.Equal(t, "Unsupported file type. Please upload an XLS or XLSX file.", c.View().Error)

	_, err = c.BeginUpload("numbers.xlsx", 1024)
	require.NoError(t, err)
	assert.Empty(t, c.View().Error, "new upload clears the previous error")
}

func TestController_DecodeError(t *testing.T) {
	c := New()
	ticket, err := c.BeginUpload("numbers.xlsx", 1024)
	require.NoError(t, err)

	c.CompleteUpload(ticket, "numbers.xlsx", nil, &domain.ImportError{Kind: domain.MissingColumns})
	v := c.View()
	assert.Equal(t, "Invalid file format. Ensure 'front' and 'back' columns exist.", v.Error)
	assert.False(t, v.Loaded())
}

func TestController_StaleUploadDropped(t *testing.T) {
	c := New()
	first, err := c.BeginUpload("old.xlsx", 10)
	require.NoError(t, err)
	second, err := c.BeginUpload("new.xlsx", 10)
	require.NoError(t, err)

	assert.True(t, c.CompleteUpload(second, "new.xlsx", cards[:1], nil))
	assert.False(t, c.CompleteUpload(first, "old.xlsx", cards, nil))

	v := c.View()
	assert.Equal(t, "new.xlsx", v.FileName)
	assert.Equal(t, 1, v.CardCount)
}

func TestController_ResetDropsInFlightUpload(t *testing.T) {
	c := New()
	ticket, err := c.BeginUpload("slow.xlsx", 10)
	require.NoError(t, err)

	c.Reset()
	assert.False(t, c.CompleteUpload(ticket, "slow.xlsx", cards, nil))
	assert.False(t, c.View().Loaded())
}

func TestController_StartInvalidRange(t *testing.T) {
	c := loaded(t)

	err := c.Start(importer.Options{Start: importer.Int(3), End: importer.Int(2)})
	require.ErrorIs(t, err, domain.ErrInvalidRange)

	v := c.View()
	assert.True(t, v.Importing())
	assert.Equal(t, "Invalid range. Please enter a range between 1 and 3.", v.Error)

	require.NoError(t, c.Start(importer.Options{Start: importer.Int(2)}))
	v = c.View()
	assert.Empty(t, v.Error)
	assert.Equal(t, "dos", v.Face)
	assert.Equal(t, 2, v.Total)
}

func TestController_StartWithoutDeck(t *testing.T) {
	c := New()
	assert.ErrorIs(t, c.Start(importer.Options{}), ErrNothingToReview)
	assert.True(t, c.View().Importing())
	assert.Empty(t, c.View().Error)
}

func TestController_ReviewToCompletion(t *testing.T) {
	c := loaded(t)
	require.NoError(t, c.Start(importer.Options{}))

	assert.True(t, c.Flip())
	assert.Equal(t, "one", c.View().Face)
	assert.True(t, c.Next())
	assert.False(t, c.View().Flipped)
	assert.False(t, c.Finish())
	assert.True(t, c.Press(review.KeyRight))
	assert.True(t, c.View().IsLast)
	assert.True(t, c.Press(review.KeyRight))

	assert.True(t, c.View().Done())
	assert.False(t, c.Press(review.KeySpace))
	assert.False(t, c.Previous())
}

func TestController_ResetReleasesKeyboard(t *testing.T) {
	c := loaded(t)
	require.NoError(t, c.Start(importer.Options{}))
	require.True(t, c.Listening())

	c.Reset()
	assert.False(t, c.Listening())
	assert.False(t, c.Press(review.KeyRight))

	v := c.View()
	assert.True(t, v.Importing())
	assert.False(t, v.Loaded())
	assert.Empty(t, v.FileName)
}

func TestController_ActionsWithoutSession(t *testing.T) {
	c := New()
	assert.False(t, c.Next())
	assert.False(t, c.Previous())
	assert.False(t, c.Flip())
	assert.False(t, c.Finish())
	assert.False(t, c.Press(review.KeySpace))
}

func TestController_Load(t *testing.T) {
	c := New()
	c.Fail(&domain.ImportError{Kind: domain.CorruptFile})
	c.Load("library.xlsx", cards)

	v := c.View()
	assert.Empty(t, v.Error)
	assert.Equal(t, "library.xlsx", v.FileName)
	assert.Equal(t, 3, v.CardCount)
}

func TestController_ShuffleLimit(t *testing.T) {
	c := loaded(t)
	require.NoError(t, c.Start(importer.Options{Shuffle: true, Limit: importer.Int(2)}))

	v := c.View()
	assert.Equal(t, 2, v.Total)
	assert.Contains(t, []string{"uno", "dos", "tres"}, v.Face)
}
