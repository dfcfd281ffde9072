package chatlog

import (
	"log/slog"
	"strings"
)

// Prefixes distinguishing the file blocks of nested messages.
const (
	FilesPrevious = "Previous: "
	FilesNew      = "New: "
	FilesDeleted  = "Deleted: "
)

// renderFiles returns one "\n\t<prefix>url_private_download: <url>" line per
// file, in order, or "" when there are none.
func renderFiles(files []File, prefix string) string {
	if len(files) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range files {
		slog.Debug("chatlog: file reference", "url", f.URLPrivateDownload)
		b.WriteString("\n\t")
		b.WriteString(prefix)
		b.WriteString("url_private_download: ")
		b.WriteString(f.URLPrivateDownload)
	}
	return b.String()
}
