package announce

import (
	"strings"
	"testing"
	"unicode/utf8"

	"blog-tweeter/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

func TestFormatMessage(t *testing.T) {
	post := entity.Post{Title: "Hello Go", URL: "https://blog.example.com/hello-go"}

	assert.Equal(t, "New post - Hello Go\nhttps://blog.example.com/hello-go", FormatMessage(post))
}

func TestFormatMessage_TrimsTitle(t *testing.T) {
	post := entity.Post{Title: "  Spaced  \n", URL: "https://blog.example.com/s"}

	assert.Equal(t, "New post - Spaced\nhttps://blog.example.com/s", FormatMessage(post))
}

func TestFormatMessage_TruncatesLongTitle(t *testing.T) {
	url := "https://blog.example.com/" + strings.Repeat("x", 200)
	post := entity.Post{Title: strings.Repeat("word ", 100), URL: url}

	msg := FormatMessage(post)

	assert.True(t, strings.HasSuffix(msg, "...\n"+url), "URL must be kept whole")
	assert.True(t, strings.HasPrefix(msg, "New post - word"))

	title := strings.TrimSuffix(strings.TrimPrefix(msg, messagePrefix), "\n"+url)
	assert.LessOrEqual(t, weight(messagePrefix)+weight(title)+1+urlWeight, MaxMessageWeight)
}

func TestFormatMessage_TitleAtBudgetIsKept(t *testing.T) {
	budget := MaxMessageWeight - weight(messagePrefix) - 1 - urlWeight
	title := strings.Repeat("a", budget)

	msg := FormatMessage(entity.Post{Title: title, URL: "https://b.example.com/p"})

	assert.Contains(t, msg, title)
	assert.NotContains(t, msg, "...")
}

func TestFormatMessage_WideCharacters(t *testing.T) {
	post := entity.Post{Title: strings.Repeat("日本語", 60), URL: "https://blog.example.com/ja"}

	msg := FormatMessage(post)

	assert.True(t, utf8.ValidString(msg))
	assert.Contains(t, msg, "...")
	title := strings.TrimSuffix(strings.TrimPrefix(msg, messagePrefix), "\nhttps://blog.example.com/ja")
	assert.LessOrEqual(t, weight(title), MaxMessageWeight-weight(messagePrefix)-1-urlWeight)
}

func TestWeight(t *testing.T) {
	assert.Equal(t, 5, weight("hello"))
	assert.Equal(t, 4, weight("日本"))
	assert.Equal(t, 2, weight("😀"))
	assert.Equal(t, 3, weight("“a”"))
}
