package remote

import "strings"

// shellQuoteJoin joins argv into a single command line suitable for the
// remote shell invoked by an SSH session's Start/Run. golang.org/x/crypto/ssh
// does not offer an argv-style exec (the SSH protocol's "exec" channel
// request always carries a single command string), so the adapter must
// quote each argument itself.
func shellQuoteJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`!*?[]{}()<>|&;~#%") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
