//go:build ignore
// +build ignore

// Gen reads the flag declarations in vars.go and writes funcs.go.
package main

import (
	"bufio"
	"bytes"
	"go/format"
	"log"
	"os"
	"regexp"
	"strings"
	"text/template"
)

// decl matches a declaration in vars.go. The default may be a literal
// or the name of a variable defined elsewhere in the package.
var decl = regexp.MustCompile(`^var\s+(_[a-z0-9_]+)\s+(bool|int|string)\s+=\s+([0-9a-zA-Z]+|"[^"]*")\s+// (.*)`)

type flagDef struct {
	Var     string // _max_conns
	Name    string // max_conns
	Func    string // MaxConns
	Type    string // int
	Default string // 0
	Usage   string
}

// Setter returns the flag package function that declares the flag.
func (f flagDef) Setter() string {
	return strings.ToUpper(f.Type[:1]) + f.Type[1:] + "Var"
}

var funcs = template.Must(template.New("funcs").Parse(`// Code generated by gen.go; DO NOT EDIT.

package flags

import "flag"
{{range .}}
// {{.Func}} returns the value of the -{{.Name}} flag, defined as:
//	-{{.Name}}: {{.Usage}}; default {{.Default}}
func {{.Func}}() {{.Type}} { return {{.Var}} }
{{end}}
var all = [...]string{
{{- range .}}
	{{printf "%q" .Name}},
{{- end}}
}

// Enable enables the command-line interface for the named flags.
// If no flags are named, it enables the full set.
// Enable panics if the flag name is not recognized.
func Enable(flags ...string) {
	if len(flags) == 0 && len(all) != 0 {
		Enable(all[:]...)
		return
	}
	for _, f := range flags {
		switch f {
{{- range .}}
		case {{printf "%q" .Name}}:
			flag.{{.Setter}}(&{{.Var}}, {{printf "%q" .Name}}, {{.Default}}, {{printf "%q" .Usage}})
{{- end}}
		default:
			panic(` + "`flags.Enable: unrecognized flag `" + ` + f)
		}
	}
}
`))

func main() {
	defs, err := parse("vars.go")
	if err != nil {
		log.Fatal(err)
	}
	var b bytes.Buffer
	if err := funcs.Execute(&b, defs); err != nil {
		log.Fatal(err)
	}
	src, err := format.Source(b.Bytes())
	if err != nil {
		log.Fatalf("formatting funcs.go: %v\n%s", err, b.Bytes())
	}
	if err := os.WriteFile("funcs.go", src, 0644); err != nil {
		log.Fatal(err)
	}
}

func parse(file string) ([]flagDef, error) {
	in, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	var defs []flagDef
	s := bufio.NewScanner(in)
	for s.Scan() {
		m := decl.FindStringSubmatch(s.Text())
		if m == nil {
			continue
		}
		defs = append(defs, flagDef{
			Var:     m[1],
			Name:    m[1][1:],
			Func:    camel(m[1][1:]),
			Type:    m[2],
			Default: m[3],
			Usage:   m[4],
		})
	}
	return defs, s.Err()
}

// camel converts max_conns to MaxConns.
func camel(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}
