// Package templates renders the import UI as templ components.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/userimport/internal/core"
)

// ImportPage renders the upload form. notice, when non-nil, is rendered
// above the form.
func ImportPage(notice templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHead); err != nil {
			return err
		}
		if notice != nil {
			if err := notice.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, importForm+pageFoot)
		return err
	})
}

// ImportNotice renders the outcome of a batch.
func ImportNotice(sum core.Summary) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		class := "notice notice-success"
		if sum.ErrorCount() > 0 {
			class = "notice notice-warning"
		}
		if _, err := fmt.Fprintf(w, `<div class="%s" role="status"><p>`, class); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Import completed: %d users imported, %d users updated, %d errors.",
			sum.Imported, sum.Updated, sum.ErrorCount()); err != nil {
			return err
		}
		if sum.Skipped > 0 {
			if _, err := fmt.Fprintf(w, " %d rows unchanged.", sum.Skipped); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</p>"); err != nil {
			return err
		}
		if err := writeList(w, "errors", sum.Errors); err != nil {
			return err
		}
		if err := writeList(w, "warnings", sum.Warnings); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</div>")
		return err
	})
}

// ErrorAlert renders a user-facing error with its suggested action and code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="notice notice-error" role="alert"><p>%s</p>`,
			templ.EscapeString(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p class="action">%s</p>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `<p class="code">Error code: %s</p></div>`, templ.EscapeString(code))
		return err
	})
}

func writeList(w io.Writer, class string, items []string) error {
	if len(items) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, `<ul class="%s">`, class); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := fmt.Fprintf(w, "<li>%s</li>", templ.EscapeString(item)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</ul>")
	return err
}

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Import users</title>
<style>
body{font-family:system-ui,sans-serif;max-width:48rem;margin:2rem auto;padding:0 1rem}
.notice{border-left:4px solid;padding:.5rem 1rem;margin-bottom:1rem}
.notice-success{border-color:#46b450}.notice-warning{border-color:#ffb900}.notice-error{border-color:#dc3232}
.code{color:#666;font-size:.85em}
</style>
</head>
<body>
<h1>Import users</h1>
`

const importForm = `<form method="post" action="/import" enctype="multipart/form-data">
<p>Upload a semicolon-separated CSV file. The first row must name the columns; <code>user_email</code> is required.</p>
<p><label for="file">CSV file</label> <input type="file" id="file" name="file" accept=".csv,text/csv" required></p>
<p><button type="submit">Import</button></p>
</form>
`

const pageFoot = `</body>
</html>
`
