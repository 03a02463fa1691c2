package contracts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Compiler compiles a Solidity source file into solc combined JSON output.
type Compiler interface {
	Compile(ctx context.Context, sourcePath string) ([]byte, error)
}

// SolcCompiler runs the solc binary.
type SolcCompiler struct {
	// Path is the solc executable; defaults to "solc" on PATH
	Path string
}

func (s *SolcCompiler) Compile(ctx context.Context, sourcePath string) ([]byte, error) {
	bin := s.Path
	if bin == "" {
		bin = "solc"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "--combined-json", "abi,bin", sourcePath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("solc failed for %s: %w: %s", sourcePath, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
