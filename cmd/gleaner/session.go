package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Open a browser window and store the session after you log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		ctx, stop := signalContext()
		defer stop()

		fmt.Printf("Log in to %s in the browser window that opens\n", config.Site.LoginURL)
		if _, err := application.SessionService.InteractiveLogin(ctx, application.Browser); err != nil {
			return err
		}
		fmt.Println("Session stored")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		if err := application.SessionService.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Session deleted")
		return nil
	},
}
