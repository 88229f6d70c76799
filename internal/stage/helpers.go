package stage

import (
	"strings"

	"smartcut/internal/session"
	"smartcut/internal/textutil"
)

// SessionDirName returns the directory name used for a session's outputs and
// scratch files: the sanitized video name, or the short session UID when the
// name is blank.
func SessionDirName(sess *session.Session) string {
	if name := strings.TrimSpace(sess.Name); name != "" {
		return textutil.SanitizeFileName(name)
	}
	if len(sess.UID) > 8 {
		return sess.UID[:8]
	}
	return textutil.SanitizeFileName(sess.UID)
}
