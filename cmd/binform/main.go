// Command binform decodes and encodes binary data against a declarative
// format module.
//
//	binform decode --module formats.jsonc --format Packet [--output cbor] [file]
//	binform encode --module formats.jsonc --format Packet [--input cbor] [file]
//
// decode reads binary data (a file argument or stdin) and prints the
// decoded value as JSON or CBOR. encode reads a JSON or CBOR value and
// prints the binary serialization to stdout.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/partite-ai/binform"
	"github.com/partite-ai/binform/codec"
	"github.com/partite-ai/binform/core"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "decode":
		err = runDecode(os.Args[2:])
	case "encode":
		err = runEncode(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "binform: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "binform: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  binform decode --module <file.jsonc> --format <name> [--output json|cbor] [file]
  binform encode --module <file.jsonc> --format <name> [--input json|cbor] [file]

Common flags:
  --module   JSONC module of format declarations (required)
  --format   declaration to decode or encode against (required)
  --config   YAML config file (byte order and strictness knobs)
`)
}

type commonFlags struct {
	module string
	format string
	config string
}

func addCommon(fs *pflag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.module, "module", "", "JSONC module of format declarations")
	fs.StringVar(&c.format, "format", "", "declaration name")
	fs.StringVar(&c.config, "config", "", "YAML config file")
	return c
}

func (c *commonFlags) elaborate() (*binform.Module, error) {
	if c.module == "" {
		return nil, fmt.Errorf("--module is required")
	}
	if c.format == "" {
		return nil, fmt.Errorf("--format is required")
	}
	cfg := binform.Config{}
	if c.config != "" {
		var err error
		cfg, err = binform.LoadConfig(c.config)
		if err != nil {
			return nil, err
		}
	}
	return binform.ElaborateFile(c.module, cfg)
}

func readInput(args []string) ([]byte, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("unexpected argument: %s", args[1])
	}
	if len(args) == 1 && args[0] != "-" {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(os.Stdin)
}

func runDecode(args []string) error {
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	common := addCommon(fs)
	output := fs.String("output", "json", "output encoding: json or cbor")
	complete := fs.Bool("complete", false, "require the value to cover all input bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, err := common.elaborate()
	if err != nil {
		return err
	}
	data, err := readInput(fs.Args())
	if err != nil {
		return err
	}

	var value core.Term
	if *complete {
		value, err = binform.DecodeComplete(m, common.format, data)
	} else {
		var n int
		value, n, err = binform.Decode(m, common.format, data)
		if err == nil && n < len(data) {
			fmt.Fprintf(os.Stderr, "binform: %d trailing bytes not decoded\n", len(data)-n)
		}
	}
	if err != nil {
		return err
	}

	switch *output {
	case "json":
		out, err := codec.MarshalJSONIndent(value)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	case "cbor":
		out, err := codec.MarshalCBOR(value)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	default:
		return fmt.Errorf("unknown output encoding %q", *output)
	}
}

func runEncode(args []string) error {
	fs := pflag.NewFlagSet("encode", pflag.ContinueOnError)
	common := addCommon(fs)
	input := fs.String("input", "json", "input encoding: json or cbor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, err := common.elaborate()
	if err != nil {
		return err
	}
	data, err := readInput(fs.Args())
	if err != nil {
		return err
	}

	var value core.Term
	switch *input {
	case "json":
		value, err = codec.UnmarshalJSON(data)
	case "cbor":
		value, err = codec.UnmarshalCBOR(data)
	default:
		return fmt.Errorf("unknown input encoding %q", *input)
	}
	if err != nil {
		return err
	}

	out, err := binform.Encode(m, common.format, value)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
