package cli

import (
	"errors"
	"fmt"

	"food-ordering/internal/model"

	"github.com/spf13/cobra"
)

func newSignUpCmd(e *env) *cobra.Command {
	var params model.CreateUserParams

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := e.services("")
			if err != nil {
				return err
			}

			user, session, err := svc.Auth.CreateUser(cmd.Context(), &params)
			if err != nil {
				return fmt.Errorf("sign up failed: %w", err)
			}

			if err := e.saveSession(params.Email, session); err != nil {
				return err
			}

			cmd.Printf("Signed up as %s <%s>.\n", user.Name, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Email, "email", "", "email address")
	cmd.Flags().StringVar(&params.Password, "password", "", "password (at least 8 characters)")
	cmd.Flags().StringVar(&params.Name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newSignInCmd(e *env) *cobra.Command {
	var params model.SignInParams

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := e.services("")
			if err != nil {
				return err
			}

			session, err := svc.Auth.SignIn(cmd.Context(), &params)
			if err != nil {
				return fmt.Errorf("sign in failed: %w", err)
			}

			if err := e.saveSession(params.Email, session); err != nil {
				return err
			}

			cmd.Printf("Signed in as %s.\n", params.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Email, "email", "", "email address")
	cmd.Flags().StringVar(&params.Password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newSignOutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Delete the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, stored, err := e.signedIn()
			if err != nil {
				return err
			}

			// An expired session is already gone on the server side.
			if err := svc.Auth.SignOut(cmd.Context()); err != nil && !errors.Is(err, model.ErrUnauthorised) {
				return fmt.Errorf("sign out failed: %w", err)
			}

			store, err := e.sessions()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}

			cmd.Printf("Signed out %s.\n", stored.Email)
			return nil
		},
	}
}

func newMeCmd(e *env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := e.signedIn()
			if err != nil {
				return err
			}

			user, err := svc.Auth.GetCurrentUser(cmd.Context())
			if err != nil {
				if errors.Is(err, model.ErrUnauthorised) {
					return fmt.Errorf("session expired, sign in again: %w", err)
				}
				return fmt.Errorf("failed to get current user: %w", err)
			}

			if asJSON {
				return printJSON(cmd, user)
			}

			cmd.Printf("Name:    %s\n", user.Name)
			cmd.Printf("Email:   %s\n", user.Email)
			cmd.Printf("Account: %s\n", user.AccountID)
			cmd.Printf("Avatar:  %s\n", user.Avatar)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func (e *env) saveSession(email string, session *model.Session) error {
	store, err := e.sessions()
	if err != nil {
		return err
	}
	if session == nil || session.Secret == "" {
		return errors.New("platform returned no session secret")
	}
	return store.Save(newStoredSession(e, email, session))
}
