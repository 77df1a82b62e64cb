package command

import (
	"strings"
)

// Split breaks an input line into the command name and its argument tokens.
func Split(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

// Parse reads "--key value" and "-k value" pairs. Tokens up to the next
// flag are joined with spaces and stripped of one pair of surrounding
// quotes. A flag without value is "true"; tokens before the first flag
// are ignored.
func Parse(tokens []string) Args {
	args := Args{}
	for i := 0; i < len(tokens); {
		tok := tokens[i]
		i++
		if !isFlag(tok) {
			continue
		}
		key := strings.TrimLeft(tok, "-")

		var values []string
		for i < len(tokens) && !isFlag(tokens[i]) {
			values = append(values, tokens[i])
			i++
		}
		if len(values) == 0 {
			args[key] = "true"
			continue
		}
		args[key] = unquote(strings.Join(values, " "))
	}
	return args
}

// isFlag reports whether tok is -x or --name. Negative numbers are values.
func isFlag(tok string) bool {
	name := strings.TrimLeft(tok, "-")
	if name == "" || len(tok)-len(name) > 2 {
		return false
	}
	c := name[0]
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// ExpandShort renames single letter arguments to the first argument name
// of cmd, in sorted order, that starts with that letter.
func ExpandShort(cmd *Command, args Args) Args {
	out := make(Args, len(args))
	names := cmd.ArgNames()
	for key, value := range args {
		if len(key) == 1 {
			if full := expand(names, key); full != "" {
				out[full] = value
				continue
			}
		}
		out[key] = value
	}
	return out
}

func expand(names []string, short string) string {
	for _, name := range names {
		if strings.HasPrefix(name, short) {
			return name
		}
	}
	return ""
}
