package mail

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
	"time"

	"github.com/yuin/goldmark"
)

const verificationMarkdown = `# RoutePick email verification

Use the code below to finish signing up.

**{{.Code}}**

The code expires in {{.Minutes}} minutes. If you did not request it, you can ignore this email.
`

const layoutHTML = `<!DOCTYPE html>
<html lang="ko">
<head><meta http-equiv="Content-Type" content="text/html; charset=UTF-8" /></head>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
{{.}}
</div>
</body>
</html>`

var (
	verificationTpl = texttemplate.Must(texttemplate.New("verification").Parse(verificationMarkdown))
	layoutTpl       = template.Must(template.New("layout").Parse(layoutHTML))
	markdown        = goldmark.New()
)

// VerificationMessage builds the signup code email.
func VerificationMessage(to, subject, code string, ttl time.Duration) (Message, error) {
	var md bytes.Buffer
	err := verificationTpl.Execute(&md, struct {
		Code    string
		Minutes int
	}{Code: code, Minutes: int(ttl.Minutes())})
	if err != nil {
		return Message{}, fmt.Errorf("render verification mail: %w", err)
	}

	html, err := renderMarkdown(md.Bytes())
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{to},
		Subject: subject,
		HTML:    html,
		Text:    md.String(),
	}, nil
}

func renderMarkdown(src []byte) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert(src, &body); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	var out bytes.Buffer
	if err := layoutTpl.Execute(&out, template.HTML(body.String())); err != nil {
		return "", fmt.Errorf("render layout: %w", err)
	}
	return out.String(), nil
}
