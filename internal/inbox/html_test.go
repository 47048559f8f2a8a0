package inbox

import "testing"

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{name: "empty", html: "", want: ""},
		{name: "paragraphs", html: "<p>Hello</p><p>World</p>", want: "Hello\nWorld"},
		{name: "drops script and style", html: "<style>b{}</style><script>alert(1)</script><div>Visible</div>", want: "Visible"},
		{name: "collapses spaces", html: "<p>Please   send\tthe   report</p>", want: "Please send the report"},
		{name: "line breaks", html: "Line one<br>Line two", want: "Line one\nLine two"},
		{name: "list items", html: "<ul><li>Send invoice</li><li>Book room</li></ul>", want: "Send invoice\nBook room"},
		{name: "invisible characters", html: "<p>Hel\u200blo</p>", want: "Hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HTMLToText(tt.html)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
