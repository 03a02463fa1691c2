// Package contracts loads contract artifacts (ABI and bytecode) from Solidity sources. A
// compiled artifact is cached next to its source and recompiled only when the source is
// newer than the cache.
package contracts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

const (
	SourceExtension = ".sol"
	CacheExtension  = ".bin"

	// DefaultContractName is the storage contract deployed when no name is configured
	DefaultContractName = "simplestorage"
	// MutatorMethod sets the stored value
	MutatorMethod = "set"
)

// DefaultInitialValue is the constructor argument used for deployments.
var DefaultInitialValue = big.NewInt(10)

// AccessorMethods are the zero-argument read methods, in lookup order.
var AccessorMethods = []string{"get", "query"}

var ErrContractNotFound = errors.New("contract not found in compiler output")

// Artifact is a compiled contract.
type Artifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
}

// DeployData returns the creation payload: bytecode followed by the encoded constructor arguments.
func (a *Artifact) DeployData(args ...interface{}) ([]byte, error) {
	ctorArgs, err := a.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack constructor arguments: %w", err)
	}
	data := make([]byte, 0, len(a.Bytecode)+len(ctorArgs))
	data = append(data, a.Bytecode...)
	return append(data, ctorArgs...), nil
}

// CallData returns the ABI encoded call of method with args.
func (a *Artifact) CallData(method string, args ...interface{}) ([]byte, error) {
	data, err := a.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack call to %s: %w", method, err)
	}
	return data, nil
}

// Unpack decodes the return data of method.
func (a *Artifact) Unpack(method string, data []byte) ([]interface{}, error) {
	values, err := a.ABI.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack result of %s: %w", method, err)
	}
	return values, nil
}

// Accessor returns the name of the contract's zero-argument read method.
func (a *Artifact) Accessor() (string, error) {
	for _, name := range AccessorMethods {
		if m, ok := a.ABI.Methods[name]; ok && len(m.Inputs) == 0 {
			return name, nil
		}
	}
	return "", fmt.Errorf("contract %s has no accessor among %v", a.Name, AccessorMethods)
}

// Source loads artifacts from a contracts directory.
type Source struct {
	dir      string
	compiler Compiler
	logger   *zap.Logger
}

func NewSource(dir string, compiler Compiler, logger *zap.Logger) *Source {
	return &Source{
		dir:      dir,
		compiler: compiler,
		logger:   logger,
	}
}

// Load returns the artifact of contract name, compiling <dir>/<name>.sol when the cached
// <dir>/<name>.bin is missing or older than the source.
func (s *Source) Load(ctx context.Context, name string) (*Artifact, error) {
	srcPath := filepath.Join(s.dir, name+SourceExtension)
	binPath := filepath.Join(s.dir, name+CacheExtension)

	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat contract source: %w", err)
	}

	binInfo, err := os.Stat(binPath)
	if err == nil && !srcInfo.ModTime().After(binInfo.ModTime()) {
		s.logger.Sugar().Debugw("Using compiled contract", zap.String("cache", binPath))
		output, err := os.ReadFile(binPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read compiled contract: %w", err)
		}
		return ParseCombinedJSON(name, output)
	}

	s.logger.Sugar().Infow("Compiling contract", zap.String("source", srcPath))
	output, err := s.compiler.Compile(ctx, srcPath)
	if err != nil {
		return nil, err
	}
	// only output holding the requested contract is cached
	artifact, err := ParseCombinedJSON(name, output)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(binPath, output, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write compiled contract: %w", err)
	}
	return artifact, nil
}

type combinedOutput struct {
	Contracts map[string]struct {
		ABI json.RawMessage `json:"abi"`
		Bin string          `json:"bin"`
	} `json:"contracts"`
}

// ParseCombinedJSON extracts contract name from solc --combined-json abi,bin output. Entries
// are keyed "<source path>:<contract>"; a single-contract output matches any name.
func ParseCombinedJSON(name string, output []byte) (*Artifact, error) {
	var out combinedOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return nil, fmt.Errorf("failed to parse compiler output: %w", err)
	}

	keys := make([]string, 0, len(out.Contracts))
	for k := range out.Contracts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var key string
	for _, k := range keys {
		if strings.EqualFold(k[strings.LastIndex(k, ":")+1:], name) {
			key = k
			break
		}
	}
	if key == "" && len(keys) == 1 {
		key = keys[0]
	}
	if key == "" {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, name)
	}
	entry := out.Contracts[key]

	// solc before 0.8.10 renders the abi as a JSON string
	abiJSON := []byte(entry.ABI)
	if len(abiJSON) > 0 && abiJSON[0] == '"' {
		var s string
		if err := json.Unmarshal(abiJSON, &s); err != nil {
			return nil, fmt.Errorf("failed to parse contract abi: %w", err)
		}
		abiJSON = []byte(s)
	}
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}

	bin := entry.Bin
	if !strings.HasPrefix(bin, "0x") {
		bin = "0x" + bin
	}
	bytecode, err := hexutil.Decode(bin)
	if err != nil {
		return nil, fmt.Errorf("failed to decode contract bytecode: %w", err)
	}

	return &Artifact{
		Name:     name,
		ABI:      parsed,
		Bytecode: bytecode,
	}, nil
}
