package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/tools/go/packages"
)

// enumType is one `_x_beg ... _x_end` const block.
type enumType struct {
	Name   string
	Begin  string
	Values []string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "enumer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fileFlag := flag.String("file", "", "go file containing //go:generate enumer")
	flag.Parse()

	fileName := strings.TrimSpace(*fileFlag)
	if fileName == "" && flag.NArg() > 0 {
		fileName = strings.TrimSpace(flag.Arg(0))
	}
	if fileName == "" {
		fileName = strings.TrimSpace(os.Getenv("GOFILE"))
	}
	if fileName == "" {
		return errors.New("missing source file; set GOFILE or pass -file")
	}
	fileName = filepath.Base(fileName)
	if filepath.Ext(fileName) != ".go" {
		return fmt.Errorf("source file must be a .go file: %s", fileName)
	}

	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	cfg := &packages.Config{
		Mode: packages.NeedName |
			packages.NeedSyntax |
			packages.NeedTypes |
			packages.NeedTypesInfo |
			packages.NeedFiles |
			packages.NeedCompiledGoFiles,
		Dir: dir,
		ParseFile: func(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
			return parser.ParseFile(fset, filename, src, parser.ParseComments)
		},
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		return errors.New("no packages found")
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return fmt.Errorf("type check failed: %s", pkg.Errors[0])
	}

	var targetFile *ast.File
	for i, file := range pkg.Syntax {
		var name string
		if i < len(pkg.CompiledGoFiles) {
			name = pkg.CompiledGoFiles[i]
		} else if i < len(pkg.GoFiles) {
			name = pkg.GoFiles[i]
		}
		if filepath.Base(name) == fileName {
			targetFile = file
			break
		}
	}
	if targetFile == nil {
		return fmt.Errorf("file %s not found in package", fileName)
	}

	enums, err := collectEnums(targetFile, pkg.TypesInfo, pkg.Fset)
	if err != nil {
		return err
	}
	if len(enums) == 0 {
		return fmt.Errorf("no enum blocks found in %s", fileName)
	}

	out, err := render(pkg.Name, enums)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(fileName, ".go")
	outPath := filepath.Join(dir, base+"_enumer.go")
	return os.WriteFile(outPath, out, 0o644)
}

func collectEnums(file *ast.File, info *types.Info, fset *token.FileSet) ([]enumType, error) {
	var results []enumType
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.CONST || len(gen.Specs) == 0 {
			continue
		}

		first, ok := gen.Specs[0].(*ast.ValueSpec)
		if !ok || len(first.Names) != 1 || first.Type == nil {
			continue
		}
		begin := first.Names[0].Name
		if !strings.HasPrefix(begin, "_") || !strings.HasSuffix(begin, "_beg") {
			continue
		}

		ident, ok := first.Type.(*ast.Ident)
		if !ok {
			pos := fset.Position(first.Pos())
			return nil, fmt.Errorf("enum type must be a named type at %s", pos)
		}
		if err := checkIntegerType(info, ident, fset); err != nil {
			return nil, err
		}

		e := enumType{Name: ident.Name, Begin: begin}
		closed := false
		for _, spec := range gen.Specs[1:] {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for _, name := range vs.Names {
				if strings.HasSuffix(name.Name, "_end") {
					closed = true
					break
				}
				if name.Name == "_" {
					continue
				}
				e.Values = append(e.Values, name.Name)
			}
			if closed {
				break
			}
		}
		if !closed {
			pos := fset.Position(gen.Pos())
			return nil, fmt.Errorf("enum %s has no _end sentinel at %s", e.Name, pos)
		}
		results = append(results, e)
	}
	return results, nil
}

func checkIntegerType(info *types.Info, ident *ast.Ident, fset *token.FileSet) error {
	obj := info.Uses[ident]
	if obj == nil {
		obj = info.Defs[ident]
	}
	if obj == nil {
		return fmt.Errorf("missing type info for %s at %s", ident.Name, fset.Position(ident.Pos()))
	}
	basic, ok := obj.Type().Underlying().(*types.Basic)
	if !ok || basic.Info()&types.IsInteger == 0 {
		return fmt.Errorf("enum %s must have an integer underlying type", ident.Name)
	}
	return nil
}

// textName strips the type prefix and converts the rest to UPPER_SNAKE,
// keeping acronym runs together (TimeInForceGTC -> GTC, AtTheOpen -> AT_THE_OPEN).
func textName(typeName, constName string) string {
	rest := []rune(strings.TrimPrefix(constName, typeName))
	var b strings.Builder
	for i, r := range rest {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(rest[i-1])
			nextLower := i+1 < len(rest) && unicode.IsLower(rest[i+1])
			if prevLower || (unicode.IsUpper(rest[i-1]) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

func render(pkgName string, enums []enumType) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("// Code generated by enumer; DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", pkgName)
	buf.WriteString("import \"fmt\"\n\n")

	for i, e := range enums {
		if i > 0 {
			buf.WriteString("\n")
		}
		writeEnum(&buf, e)
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return out, nil
}

func writeEnum(buf *bytes.Buffer, e enumType) {
	recv := receiverName(e.Name)

	fmt.Fprintf(buf, "func (%s %s) String() string {\n", recv, e.Name)
	fmt.Fprintf(buf, "\tswitch %s {\n", recv)
	for _, v := range e.Values {
		fmt.Fprintf(buf, "\tcase %s:\n\t\treturn %q\n", v, textName(e.Name, v))
	}
	fmt.Fprintf(buf, "\tdefault:\n\t\treturn \"UNKNOWN\"\n\t}\n}\n\n")

	fmt.Fprintf(buf, "func (%s %s) MarshalText() ([]byte, error) {\n", recv, e.Name)
	fmt.Fprintf(buf, "\tif !%s.IsAvailable() {\n\t\treturn []byte{}, nil\n\t}\n", recv)
	fmt.Fprintf(buf, "\treturn []byte(%s.String()), nil\n}\n\n", recv)

	fmt.Fprintf(buf, "func (%s *%s) UnmarshalText(text []byte) error {\n", recv, e.Name)
	fmt.Fprintf(buf, "\tv, err := Parse%s(string(text))\n", e.Name)
	fmt.Fprintf(buf, "\tif err != nil {\n\t\treturn err\n\t}\n")
	fmt.Fprintf(buf, "\t*%s = v\n\treturn nil\n}\n\n", recv)

	fmt.Fprintf(buf, "// Parse%s converts a text name into a %s. Empty text yields the zero value.\n", e.Name, e.Name)
	fmt.Fprintf(buf, "func Parse%s(text string) (%s, error) {\n", e.Name, e.Name)
	fmt.Fprintf(buf, "\tswitch text {\n\tcase \"\":\n\t\treturn %s, nil\n", e.Begin)
	for _, v := range e.Values {
		fmt.Fprintf(buf, "\tcase %q:\n\t\treturn %s, nil\n", textName(e.Name, v), v)
	}
	fmt.Fprintf(buf, "\t}\n")
	fmt.Fprintf(buf, "\treturn %s, fmt.Errorf(\"enum: invalid %s %%q\", text)\n}\n", e.Begin, e.Name)
}

func receiverName(typeName string) string {
	if typeName == "" {
		return "v"
	}
	r := strings.ToLower(typeName[:1])
	if r[0] < 'a' || r[0] > 'z' {
		return "v"
	}
	return r
}
