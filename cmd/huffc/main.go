// Command huffc compiles a Huff source file to EVM bytecode.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/huffc-go/huffc/internal/abi"
	"github.com/huffc-go/huffc/internal/driver"
	"github.com/huffc-go/huffc/internal/include"
	"github.com/huffc-go/huffc/internal/scope"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		printRuntime  bool
		printDeploy   bool
		avoidPush0    bool
		constantFlags []string
		artifactsPath string
	)

	cmd := &cobra.Command{
		Use:           "huffc [path]",
		Short:         "Compile a Huff source file to EVM bytecode",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(runOptions{
				path:           args[0],
				printRuntime:   printRuntime,
				printDeploy:    printDeploy,
				avoidPush0:     avoidPush0,
				constantFlags:  constantFlags,
				writeArtifacts: cmd.Flags().Changed("artifacts"),
				artifactsPath:  artifactsPath,
			})
		},
	}

	cmd.Flags().BoolVarP(&printRuntime, "runtime", "r", false, "print runtime bytecode hex to stdout")
	cmd.Flags().BoolVarP(&printDeploy, "deploy", "b", false, "print deploy bytecode hex to stdout")
	cmd.Flags().StringArrayVarP(&constantFlags, "constant", "c", nil, "override a constant: NAME=0xHEX (repeatable)")
	cmd.Flags().StringVar(&artifactsPath, "artifacts", "artifacts.json", "write ABI+bytecode JSON to the given path")
	cmd.Flags().Lookup("artifacts").NoOptDefVal = "artifacts.json"
	cmd.Flags().BoolVar(&avoidPush0, "avoid-push0", false, "lower a standalone 0x00 literal to PUSH1 0x00 instead of PUSH0")

	return cmd
}

type runOptions struct {
	path           string
	printRuntime   bool
	printDeploy    bool
	avoidPush0     bool
	constantFlags  []string
	writeArtifacts bool
	artifactsPath  string
}

func run(opts runOptions) error {
	overrides := make([]scope.Override, 0, len(opts.constantFlags))
	for _, raw := range opts.constantFlags {
		ov, err := scope.ParseOverride(raw)
		if err != nil {
			return err
		}
		overrides = append(overrides, ov)
	}

	resolved, err := include.Resolve(opts.path, opts.avoidPush0)
	if err != nil {
		return err
	}
	for _, w := range resolved.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	result, err := driver.Compile(resolved.Definitions, overrides, driver.Options{AvoidPush0: opts.avoidPush0})
	if err != nil {
		return err
	}

	switch {
	case opts.printRuntime && opts.printDeploy:
		fmt.Printf("Runtime: 0x%x\n", result.Runtime)
		fmt.Printf("Deploy: 0x%x\n", result.Deploy)
	case opts.printRuntime:
		fmt.Printf("0x%x\n", result.Runtime)
	case opts.printDeploy:
		fmt.Printf("0x%x\n", result.Deploy)
	}

	if opts.writeArtifacts {
		if err := writeArtifacts(opts.artifactsPath, result); err != nil {
			return err
		}
	}
	return nil
}

type bytecodeObject struct {
	Object string `json:"object"`
}

// artifacts matches spec.md §6's artifacts JSON shape: creation (deploy)
// code under "bytecode", the code left on-chain after construction under
// "deployedBytecode" — the same naming convention solc output uses.
type artifacts struct {
	ABI              abi.Abi        `json:"abi"`
	Bytecode         bytecodeObject `json:"bytecode"`
	DeployedBytecode bytecodeObject `json:"deployedBytecode"`
}

func writeArtifacts(path string, result *driver.Result) error {
	out := artifacts{
		ABI:              result.ABI,
		Bytecode:         bytecodeObject{Object: fmt.Sprintf("0x%x", result.Deploy)},
		DeployedBytecode: bytecodeObject{Object: fmt.Sprintf("0x%x", result.Runtime)},
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
