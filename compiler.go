package main

// Analyze parses source and runs both analysis passes over it.
func Analyze(source []byte) (*ASTNode, *TypeChecker, error) {
	program, err := ParseProgram(NewLexer(source))
	if err != nil {
		return nil, nil, err
	}
	tc, err := CheckProgram(program)
	if err != nil {
		return nil, nil, err
	}
	return program, tc, nil
}

// CompileProgram compiles source to IR text. On error no IR is produced.
func CompileProgram(source []byte) (string, error) {
	program, tc, err := Analyze(source)
	if err != nil {
		return "", err
	}
	e, err := GenerateIR(program, tc)
	if err != nil {
		return "", err
	}
	return e.String(), nil
}
