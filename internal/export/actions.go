package export

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/druxit/models"
	"github.com/dtnitsch/druxit/pkg/assemble"
	"github.com/dtnitsch/druxit/pkg/db"
	"github.com/dtnitsch/druxit/pkg/discover"
	exportpkg "github.com/dtnitsch/druxit/pkg/export"
	"github.com/dtnitsch/druxit/pkg/logger"
)

// Action runs a batch export from flags and settings.
func Action(c *cli.Context) error {
	log := logger.New(c.Bool("quiet"))

	settings, err := models.LoadSettings(c.String("settings"))
	if err != nil {
		return err
	}
	applyFlags(&settings, c)

	conn, err := db.Open(connConfig(settings))
	if err != nil {
		return err
	}
	defer conn.Close()

	policy, err := exportpkg.ParsePolicy(settings.OnError)
	if err != nil {
		return err
	}

	opts := exportpkg.Options{
		Types:          settings.Types,
		OutDir:         settings.OutputDir,
		Workers:        settings.Workers,
		OnError:        policy,
		Pretty:         c.Bool("pretty"),
		Plaintext:      settings.Plaintext,
		ContainerTypes: settings.ContainerTypes,
		Blacklist:      settings.Blacklist,
		Progress:       !c.Bool("quiet"),
	}
	for _, raw := range c.StringSlice("nids") {
		nid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid nid %q: %w", raw, err)
		}
		opts.NIDs = append(opts.NIDs, nid)
	}

	driver, err := exportpkg.New(conn, opts, log)
	if err != nil {
		return err
	}
	defer driver.Close()

	res, err := driver.Run()
	if err != nil {
		return err
	}

	log.Info().
		Int("exported", res.Exported).
		Int("skipped", res.Skipped).
		Int("warnings", len(res.Warnings)).
		Str("out", opts.OutDir).
		Msg("export finished")
	for _, w := range res.Warnings {
		log.Warn().
			Int64("nid", w.NID).
			Str("kind", string(w.Warning.Kind)).
			Str("field", w.Warning.Field).
			Str("target", w.Warning.Target).
			Msg(w.Warning.Detail)
	}
	return nil
}

// NodeAction assembles a single node and prints its document to stdout.
func NodeAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("node id required\nUsage: druxit node <nid>")
	}
	nid, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid node id %q: %w", c.Args().First(), err)
	}

	log := logger.New(c.Bool("quiet"))
	settings, err := models.LoadSettings(c.String("settings"))
	if err != nil {
		return err
	}
	applyFlags(&settings, c)

	conn, err := db.Open(connConfig(settings))
	if err != nil {
		return err
	}
	defer conn.Close()

	disc, err := discover.New(conn, settings.Blacklist)
	if err != nil {
		return err
	}
	defer disc.Close()

	asm := assemble.New(conn, disc, assemble.Options{
		ContainerTypes: settings.ContainerTypes,
		Plaintext:      settings.Plaintext,
	})
	doc, warns, err := asm.Assemble(nid)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	fmt.Println(string(data))

	for _, w := range warns {
		log.Warn().
			Str("kind", string(w.Kind)).
			Str("field", w.Field).
			Str("target", w.Target).
			Msg(w.Detail)
	}
	return nil
}

// InteractiveAction is the default entry point: prompt for whatever the
// settings file is missing, offer to save, then run a full export.
func InteractiveAction(c *cli.Context) error {
	log := logger.New(c.Bool("quiet"))

	path := c.String("settings")
	settings, err := models.LoadSettings(path)
	if err != nil {
		return err
	}

	hadPassword := settings.Password != ""
	if err := promptMissing(&settings); err != nil {
		return err
	}

	savePassword := hadPassword
	if !hadPassword {
		if err := survey.AskOne(&survey.Confirm{Message: "Save password to " + path + "?"}, &savePassword); err != nil {
			return err
		}
	}
	saved := settings
	if !savePassword {
		saved.Password = ""
	}
	if err := saved.Save(path); err != nil {
		return err
	}

	conn, err := db.Open(connConfig(settings))
	if err != nil {
		return err
	}
	defer conn.Close()

	policy, err := exportpkg.ParsePolicy(settings.OnError)
	if err != nil {
		return err
	}

	driver, err := exportpkg.New(conn, exportpkg.Options{
		Types:          settings.Types,
		OutDir:         settings.OutputDir,
		Workers:        settings.Workers,
		OnError:        policy,
		Pretty:         true,
		Plaintext:      settings.Plaintext,
		ContainerTypes: settings.ContainerTypes,
		Blacklist:      settings.Blacklist,
		Progress:       !c.Bool("quiet"),
	}, log)
	if err != nil {
		return err
	}
	defer driver.Close()

	fmt.Println("\nExporting...")
	res, err := driver.Run()
	if err != nil {
		return err
	}
	fmt.Printf("\nDone. %d nodes exported, %d skipped, %d warnings. Output: %s\n",
		res.Exported, res.Skipped, len(res.Warnings), settings.OutputDir)
	return nil
}

func promptMissing(s *models.Settings) error {
	if s.Database == "" {
		if err := survey.AskOne(&survey.Input{Message: "Database name:"}, &s.Database, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	if s.User == "" {
		if err := survey.AskOne(&survey.Input{Message: "Username:"}, &s.User, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	if s.Password == "" {
		if err := survey.AskOne(&survey.Password{Message: "Password:"}, &s.Password); err != nil {
			return err
		}
	}
	return nil
}

func connConfig(s models.Settings) db.Config {
	return db.Config{
		Driver:   s.Driver,
		Host:     s.Host,
		Database: s.Database,
		User:     s.User,
		Password: s.Password,
	}
}

// applyFlags lets CLI flags override the settings file.
func applyFlags(s *models.Settings, c *cli.Context) {
	if c.IsSet("types") {
		s.Types = c.StringSlice("types")
	}
	if c.IsSet("out") {
		s.OutputDir = c.String("out")
	}
	if c.IsSet("workers") {
		s.Workers = c.Int("workers")
	}
	if c.IsSet("on-error") {
		s.OnError = c.String("on-error")
	}
	if c.IsSet("plaintext") {
		s.Plaintext = c.Bool("plaintext")
	}
	if c.IsSet("driver") {
		s.Driver = c.String("driver")
	}
	if c.IsSet("host") {
		s.Host = c.String("host")
	}
	if c.IsSet("database") {
		s.Database = c.String("database")
	}
	if c.IsSet("user") {
		s.User = c.String("user")
	}
	if c.IsSet("password") {
		s.Password = c.String("password")
	}
}
