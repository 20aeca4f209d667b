package cli

import (
	"github.com/spf13/pflag"

	"github.com/aleksaelezovic/rdfio/pkg/rdfio"
)

// formatValue is a flag holding a format tag. Aliases, extensions and
// media types are normalised when the flag is set.
type formatValue rdfio.Format

func (v *formatValue) String() string { return string(*v) }

func (v *formatValue) Set(s string) error {
	f, err := rdfio.ParseFormat(s)
	if err != nil {
		return err
	}
	*v = formatValue(f)
	return nil
}

func (v *formatValue) Type() string { return "format" }

func formatVarP(flags *pflag.FlagSet, p *rdfio.Format, name, shorthand, usage string) {
	flags.VarP((*formatValue)(p), name, shorthand, usage)
}
