package telegram

import "testing"

func TestMarkdownToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"escapes", "a < b & c", "a &lt; b &amp; c"},
		{"bold", "**bold**", "<b>bold</b>"},
		{"italic", "*it*", "<i>it</i>"},
		{"strike", "~~gone~~", "<s>gone</s>"},
		{"code span", "use `go test`", "use <code>go test</code>"},
		{"link", "[site](https://example.com)", `<a href="https://example.com">site</a>`},
		{"heading", "# Title", "<b>Title</b>"},
		{"fenced code", "```go\nx := 1 < 2\n```", `<pre><code class="language-go">x := 1 &lt; 2` + "\n</code></pre>"},
		{"unordered list", "- a\n- b", "• a\n• b"},
		{"ordered list", "3. a\n4. b", "3. a\n4. b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MarkdownToHTML(tt.in); got != tt.want {
				t.Errorf("MarkdownToHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
