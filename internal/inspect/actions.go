package inspect

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/druxit/models"
	"github.com/dtnitsch/druxit/pkg/db"
	"github.com/dtnitsch/druxit/pkg/discover"
)

// FieldsAction prints the discovered field storage for a bundle, which is
// the quickest way to check what an export of that type will contain.
func FieldsAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("bundle required\nUsage: druxit fields <bundle>\nExample: druxit fields page")
	}
	bundle := c.Args().First()
	entity := c.String("entity")

	settings, err := models.LoadSettings(c.String("settings"))
	if err != nil {
		return err
	}

	conn, err := db.Open(db.Config{
		Driver:   settings.Driver,
		Host:     settings.Host,
		Database: settings.Database,
		User:     settings.User,
		Password: settings.Password,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	disc, err := discover.New(conn, settings.Blacklist)
	if err != nil {
		return err
	}
	defer disc.Close()

	descs, err := disc.Fields(entity, bundle)
	if err != nil {
		return err
	}
	if len(descs) == 0 {
		fmt.Printf("No fields found for %s bundle %q\n", entity, bundle)
		return nil
	}

	fmt.Printf("%-30s %-35s %-12s %s\n", "Field", "Table", "Reference", "Value Columns")
	fmt.Println(strings.Repeat("-", 110))
	for _, d := range descs {
		ref := "-"
		if d.TargetColumn != "" {
			ref = "yes"
		}
		fmt.Printf("%-30s %-35s %-12s %s\n", d.Name, d.Table, ref, strings.Join(d.ValueColumns, ", "))
	}
	fmt.Printf("\nTotal: %d fields\n", len(descs))
	return nil
}
