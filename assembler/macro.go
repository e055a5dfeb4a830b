package assembler

import (
	"strings"

	"pseudoasm"
)

// macro is one MACRO ... MEND definition: an ordered list of formal
// argument names and the raw body lines between MACRO and MEND, expanded
// textually and unhygienically at each call site — grounded in the
// teacher's macroprocessor.Macro/handleMacro pair, generalized from a
// single-pass line processor into a pre-lexing source transform per
// SPEC_FULL §3.
type macro struct {
	name string
	args []string
	body []string
}

// expandMacros runs the optional macro preprocessor pass over source lines
// before lexing. It recognises "MACRO name arg...", body lines, "MEND",
// and any call of a previously defined macro by its head word; everything
// else passes through unchanged. Nested macro calls inside a body are
// expanded recursively.
func expandMacros(lines []string, logger pseudoasm.Logger) ([]string, error) {
	macros := make(map[string]macro)
	var out []string

	var defining *macro
	for lineNo, raw := range lines {
		code := stripComment(raw)
		_, rest, hasLabel := splitLabelRaw(code)
		body := code
		if hasLabel {
			body = rest
		}
		fields := strings.Fields(body)

		if defining != nil {
			if len(fields) > 0 && strings.EqualFold(fields[0], "MEND") {
				if _, redefined := macros[strings.ToUpper(defining.name)]; redefined {
					logger.Warnf("macro %s redefined", defining.name)
				}
				macros[strings.ToUpper(defining.name)] = *defining
				defining = nil
				continue
			}
			defining.body = append(defining.body, raw)
			continue
		}

		if len(fields) == 0 {
			out = append(out, raw)
			continue
		}

		switch {
		case strings.EqualFold(fields[0], "MACRO"):
			if len(fields) < 2 {
				return nil, &pseudoasm.ParseError{Msg: "MACRO directive requires a name", Pos: pseudoasm.Position{Line: lineNo + 1}}
			}
			defining = &macro{name: fields[1], args: append([]string{}, fields[2:]...)}
		case strings.EqualFold(fields[0], "MEND"):
			return nil, &pseudoasm.ParseError{Msg: "MEND without a matching MACRO", Pos: pseudoasm.Position{Line: lineNo + 1}}
		default:
			expanded, err := expandLine(raw, macros, 0)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
		}
	}
	if defining != nil {
		return nil, &pseudoasm.ParseError{Msg: "unterminated MACRO " + defining.name}
	}
	return out, nil
}

const maxMacroExpansionDepth = 32

// expandLine expands one source line if its head word names a macro,
// recursively expanding any macro calls the substituted body introduces.
// depth guards against runaway mutual recursion between macros.
func expandLine(raw string, macros map[string]macro, depth int) ([]string, error) {
	if depth > maxMacroExpansionDepth {
		return nil, &pseudoasm.ParseError{Msg: "macro expansion nested too deeply (possible recursive macro)"}
	}

	code := stripComment(raw)
	label, rest, hasLabel := splitLabelRaw(code)
	body := code
	if hasLabel {
		body = rest
	}
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return []string{raw}, nil
	}

	m, ok := macros[strings.ToUpper(fields[0])]
	if !ok {
		return []string{raw}, nil
	}

	callArgs := splitCallArgs(body[len(fields[0]):])
	if len(callArgs) != len(m.args) {
		return nil, &pseudoasm.ParseError{Msg: "macro " + m.name + " called with the wrong number of arguments"}
	}
	subs := make(map[string]string, len(m.args))
	for i, formal := range m.args {
		subs[formal] = callArgs[i]
	}

	var out []string
	if hasLabel {
		out = append(out, label+":")
	}
	for _, bodyLine := range m.body {
		substituted := substituteWords(bodyLine, subs)
		expanded, err := expandLine(substituted, macros, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

// substituteWords replaces every whitespace-delimited word in line that
// exactly matches (ignoring a trailing comma) a formal parameter with its
// actual argument, preserving the comma.
func substituteWords(line string, subs map[string]string) string {
	fields := strings.Fields(line)
	for i, w := range fields {
		suffix := ""
		bare := w
		if strings.HasSuffix(bare, ",") {
			bare, suffix = strings.TrimSuffix(bare, ","), ","
		}
		if rep, ok := subs[bare]; ok {
			fields[i] = rep + suffix
		}
	}
	return strings.Join(fields, " ")
}

// splitCallArgs splits a macro call's argument text on commas, trimming
// surrounding whitespace from each.
func splitCallArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

func stripComment(s string) string {
	if i := strings.Index(s, "//"); i >= 0 {
		return s[:i]
	}
	return strings.TrimRight(s, "\r")
}

// splitLabelRaw splits "LABEL: rest" into its label and remainder, grounded
// on the teacher's parseAsmLine use of strings.Cut(rawLine, ":").
func splitLabelRaw(s string) (label, rest string, has bool) {
	label, rest, has = strings.Cut(s, ":")
	if !has {
		return "", s, false
	}
	return strings.TrimSpace(label), rest, true
}
