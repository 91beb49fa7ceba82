package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/term"

	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/storage/database"
)

var (
	readPasswordFunc  = term.ReadPassword     // mockable
	ensureIndexesFunc = database.EnsureIndexes // mockable

	errHelp  = errors.New("help provided")
	errNoDB  = errors.New("no mongo database configured")
	errShort = errors.New("password must have at least 6 characters")
)

type commandLine struct {
	adminSvc *auth.AdminService
	loginSvc *auth.LoginService
	db       *mongo.Database
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addadmin -email EMAIL -name NAME - create an administrator, the password is prompted next")
	fmt.Println("  resetpassword -email EMAIL - reset the password of an account")
	fmt.Println("  setcode -admin UID|EMAIL -code CODE - change the 6 digit admin session code of an administrator")
	fmt.Println("  totp -admin UID|EMAIL - enroll an administrator in TOTP and print the otpauth URL")
	fmt.Println("  unlock -identifier EMAIL|MOBILE - clear the login lockout of an account")
	fmt.Println("  indexes - create the database indexes")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addAdminCmd := flag.NewFlagSet("addadmin", flag.ContinueOnError)
	addAdminEmail := addAdminCmd.String("email", "", "The administrator's email.")
	addAdminName := addAdminCmd.String("name", "", "The administrator's name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	setCodeCmd := flag.NewFlagSet("setcode", flag.ContinueOnError)
	setCodeAdmin := setCodeCmd.String("admin", "", "The administrator's uid or email.")
	setCodeCode := setCodeCmd.String("code", "", "The new 6 digit code.")

	totpCmd := flag.NewFlagSet("totp", flag.ContinueOnError)
	totpAdmin := totpCmd.String("admin", "", "The administrator's uid or email.")

	unlockCmd := flag.NewFlagSet("unlock", flag.ContinueOnError)
	unlockIdentifier := unlockCmd.String("identifier", "", "The email or mobile number the account signs in with.")

	switch args[1] {
	case "addadmin":
		if err := addAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addAdminEmail == "" || *addAdminName == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		rec, err := cli.adminSvc.AddAdmin(ctx, *addAdminEmail, *addAdminName, pwd)
		if err != nil {
			return err
		}
		fmt.Printf("administrator %s created (uid: %s)\n", rec.Email, rec.UID)
		return nil

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		return cli.adminSvc.ResetPassword(ctx, *resetPasswordEmail, pwd)

	case "setcode":
		if err := setCodeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setCodeAdmin == "" || *setCodeCode == "" {
			setCodeCmd.Usage()
			return errHelp
		}
		return cli.adminSvc.SetShortCode(ctx, *setCodeAdmin, *setCodeCode)

	case "totp":
		if err := totpCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *totpAdmin == "" {
			totpCmd.Usage()
			return errHelp
		}
		url, err := cli.adminSvc.EnrollTOTP(ctx, *totpAdmin)
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil

	case "unlock":
		if err := unlockCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *unlockIdentifier == "" {
			unlockCmd.Usage()
			return errHelp
		}
		return cli.loginSvc.Unlock(ctx, *unlockIdentifier)

	case "indexes":
		if cli.db == nil {
			return errNoDB
		}
		return ensureIndexesFunc(ctx, cli.db)

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	if len(pwd) < 6 {
		return "", errShort
	}
	return string(pwd), nil
}
