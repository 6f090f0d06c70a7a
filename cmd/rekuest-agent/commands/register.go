package commands

import (
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/arkitektio/rekuest-next/errors"
	"github.com/arkitektio/rekuest-next/port"
)

// RegisterCmd prints every registered implementation's Definition (name,
// kind, args, returns, content-addressed hash) without dialing the
// server, a dry-run for validating what `run` would announce at INIT.
var RegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Print the registered implementations without connecting",
	RunE:  runRegister,
}

func runRegister(cmd *cobra.Command, args []string) error {
	defReg, _ := buildDemoRegistry()

	ifaces := defReg.Interfaces()
	sort.Strings(ifaces)

	if len(ifaces) == 0 {
		pterm.Warning.Println("no implementations registered")
		return nil
	}

	for _, iface := range ifaces {
		reg, err := defReg.GetRegistration(iface)
		if err != nil {
			return errors.Wrapf(err, "looking up registration for %s", iface)
		}

		hash, err := reg.Definition.Hash()
		if err != nil {
			return errors.Wrapf(err, "hashing definition for %s", iface)
		}

		pterm.Success.Printf("%s  [%s]\n", iface, reg.Definition.Kind)
		pterm.Info.Printf("  hash:    %s\n", hash)
		pterm.Info.Printf("  args:    %s\n", portNames(reg.Definition.Args))
		pterm.Info.Printf("  returns: %s\n", portNames(reg.Definition.Returns))
	}

	return nil
}

func portNames(ports []*port.Port) string {
	if len(ports) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.Key)
	}
	return strings.Join(names, ", ")
}
