package commands

import (
	"flag"
	"fmt"
	"sort"

	"github.com/maksimkurb/pbr-lens/internal/config"
	"github.com/maksimkurb/pbr-lens/internal/routing"
)

// ShowCommand prints the parsed policy rules and routing tables, as a
// diagnostic view of what the snapshot parsed into.
type ShowCommand struct {
	fs  *flag.FlagSet
	cfg *config.Config

	Family uint
}

// CreateShowCommand creates the show command.
func CreateShowCommand() *ShowCommand {
	c := &ShowCommand{
		fs: flag.NewFlagSet("show", flag.ExitOnError),
	}

	c.fs.UintVar(&c.Family, "family", 0, "Limit output to one IP family (4 or 6)")

	return c
}

// Name returns the command name.
func (c *ShowCommand) Name() string {
	return c.fs.Name()
}

// Init parses flags and loads the configuration.
func (c *ShowCommand) Init(args []string, ctx *AppContext) error {
	if err := c.fs.Parse(args); err != nil {
		return err
	}
	if c.Family != 0 && c.Family != 4 && c.Family != 6 {
		return fmt.Errorf("-family must be 4 or 6")
	}

	cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	return nil
}

// Run builds the tables and dumps them.
func (c *ShowCommand) Run() error {
	manager, err := newBuiltManager(c.cfg)
	if err != nil {
		return err
	}

	for _, family := range c.families() {
		fmt.Printf("%s policy rules:\n", family)
		rules := manager.Rules(family)
		if len(rules) == 0 {
			fmt.Println("  (none)")
		}
		for _, rule := range rules {
			fmt.Printf("  %s\n", rule.Raw)
		}

		tables := manager.Tables(family)
		ids := make([]string, 0, len(tables))
		for id := range tables {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			table := tables[id]
			fmt.Printf("%s table %s (%d routes):\n", family, id, table.Len())
			for _, route := range table.Routes() {
				fmt.Printf("  %s\n", route.Raw)
			}
		}
		fmt.Println()
	}

	return nil
}

func (c *ShowCommand) families() []routing.Family {
	switch c.Family {
	case 4:
		return []routing.Family{routing.V4}
	case 6:
		return []routing.Family{routing.V6}
	default:
		return []routing.Family{routing.V4, routing.V6}
	}
}
