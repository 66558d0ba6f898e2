package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nhle/eodex/internal/credential"
	"github.com/nhle/eodex/internal/model"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the eodex configuration file.",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file.",
	Long: `Writes a configuration template with the stock keyword and time-pattern
lists to the config path. Edit it afterwards to fill in your IMAP settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file %s already exists", configPath)
		}

		if err := model.SaveConfig(configPath, model.DefaultConfig()); err != nil {
			return err
		}

		cmd.Printf("Wrote default configuration to %s\n", configPath)
		return nil
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the IMAP password in the system keyring.",
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the IMAP password in the system keyring.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := model.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := cfg.ValidateConnection(); err != nil {
			return err
		}

		cmd.Printf("Password for %s@%s: ", cfg.Email.Username, cfg.Email.Server)
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		cmd.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		if len(password) == 0 {
			return fmt.Errorf("empty password")
		}

		key := credential.Key(cfg.Email.Username, cfg.Email.Server)
		if err := credential.Set(key, string(password)); err != nil {
			return err
		}

		cmd.Println("Password stored in system keyring.")
		return nil
	},
}

var authDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the IMAP password from the system keyring.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := model.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := cfg.ValidateConnection(); err != nil {
			return err
		}

		key := credential.Key(cfg.Email.Username, cfg.Email.Server)
		if err := credential.Delete(key); err != nil {
			return err
		}

		cmd.Println("Password removed from system keyring.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authDeleteCmd)
}
