package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/nexuslearn/internal/identity"
	"github.com/rcliao/nexuslearn/internal/model"
)

func init() {
	signupCmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Long:  "Create an account and log in. The password can be given with -p or piped via stdin.",
		Run:   runSignup,
	}
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to an existing account",
		Run:   runLogin,
	}
	for _, c := range []*cobra.Command{signupCmd, loginCmd} {
		c.Flags().StringP("email", "e", "", "Account email (required)")
		c.Flags().StringP("password", "p", "", "Password (or pipe via stdin)")
		c.MarkFlagRequired("email")
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Log out",
		Run:   runLogout,
	}
	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in account",
		Run:   runWhoami,
	}
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the profile of the logged in account",
		Run:   runProfile,
	}
	profileCmd.Flags().String("name", "", "Display name")

	RootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, whoamiCmd, profileCmd)
}

func credentials(cmd *cobra.Command) (string, string) {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		p, err := readStdin()
		if err != nil {
			exitErr("read stdin", err)
		}
		password = p
	}
	return email, password
}

func runSignup(cmd *cobra.Command, args []string) {
	authenticate(cmd, "signup", func(ctx context.Context, ids *identity.Store, email, password string) (model.Session, error) {
		return ids.Signup(ctx, email, password)
	})
}

func runLogin(cmd *cobra.Command, args []string) {
	authenticate(cmd, "login", func(ctx context.Context, ids *identity.Store, email, password string) (model.Session, error) {
		return ids.Login(ctx, email, password)
	})
}

func authenticate(cmd *cobra.Command, op string, fn func(context.Context, *identity.Store, string, string) (model.Session, error)) {
	email, password := credentials(cmd)

	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close()

	sess, err := fn(cmd.Context(), a.ids, email, password)
	if err != nil {
		exitErr(op, err)
	}
	printSession(sess)
}

func runLogout(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close()

	if err := a.ids.Logout(cmd.Context()); err != nil {
		exitErr("logout", err)
	}
	fmt.Println(`{"ok":true}`)
}

// runWhoami reads the account record behind the session, so an account
// dropped by an import shows up as an error instead of a stale session.
func runWhoami(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	acct, err := a.ids.Account(cmd.Context(), a.ids.Current().Email)
	if err != nil {
		exitErr("whoami", err)
	}
	printSession(acct.Session())
}

func runProfile(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	var upd identity.ProfileUpdate
	if cmd.Flags().Changed("name") {
		name, _ := cmd.Flags().GetString("name")
		upd.Name = &name
	}
	sess, err := a.ids.UpdateProfile(cmd.Context(), upd)
	if err != nil {
		exitErr("profile", err)
	}
	printSession(sess)
}

func printSession(sess model.Session) {
	if textFormat() {
		if sess.Name != "" {
			fmt.Printf("%s <%s>\n", sess.Name, sess.Email)
		} else {
			fmt.Println(sess.Email)
		}
		return
	}
	printJSON(sess)
}
