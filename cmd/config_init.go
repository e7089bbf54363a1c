package cmd

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/PolarWolf314/sfcpay/internal/configs"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/PolarWolf314/sfcpay/internal/ui"
	"github.com/PolarWolf314/sfcpay/internal/utils"
	"github.com/PolarWolf314/sfcpay/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	initForce       bool
	initProject     bool
	initCertificate string
	initPrivateKey  string
	initPKCS12      string
	initUAT         bool
)

func init() {
	configInitCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
	configInitCmd.Flags().BoolVarP(&initProject, "project", "p", false, "write sfcpay.toml in the current directory instead of the user config")
	configInitCmd.Flags().StringVar(&initCertificate, "certificate", "", "path to the client certificate (PEM)")
	configInitCmd.Flags().StringVar(&initPrivateKey, "private-key", "", "path to the client private key (PEM)")
	configInitCmd.Flags().StringVar(&initPKCS12, "pkcs12", "", "path to a PKCS#12 archive holding the certificate and key")
	configInitCmd.Flags().BoolVar(&initUAT, "uat", false, "target the UAT environment")
}

func resetConfigInitState() {
	initForce = false
	initProject = false
	initCertificate = ""
	initPrivateKey = ""
	initPKCS12 = ""
	initUAT = false
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter configuration file",
	Long: `Writes a configuration file with the defaults and your certificate paths.

The encryption key is not written. Supply it with SFCPAY_ENCRYPTION_KEY, add
encryption_key to the file yourself, or seal it with 'sfcpay config seal-key'.

Examples:
  sfcpay config init --certificate ~/certs/client.crt --private-key ~/certs/client.key
  sfcpay config init --pkcs12 ~/certs/client.p12 --uat --project`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config init command")

		path := configFile
		switch {
		case path != "":
			expanded, err := utils.ExpandPath(path)
			if err != nil {
				return err
			}
			path = expanded
		case initProject:
			path = configs.ProjectConfigName
		default:
			path = configs.SfcpaySettings.ConfigPath
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		Logger.Debugf("Writing config to %s", path)

		result, err := workflows.InitConfig(context.Background(), workflows.InitOptions{
			Path:               path,
			Force:              initForce,
			CertificateFile:    initCertificate,
			PrivateKeyFile:     initPrivateKey,
			PKCS12File:         initPKCS12,
			UseTestEnvironment: initUAT,
		})
		if err != nil {
			msg := ui.Error.Sprint("✗") + " " + err.Error()
			if errors.Is(err, kerrors.ErrConfigExists) {
				msg += "\n" + ui.Info.Sprint("→") + " Use " + ui.Flag.Sprint("--force") + " to overwrite it"
			}
			cmd.PrintErrln(msg)
			return reported(err)
		}

		verb := "Created"
		if result.Overwritten {
			verb = "Overwrote"
		}
		cmd.Println(ui.Success.Sprint("✓") + " " + verb + " " + ui.Path.Sprint(result.Path))
		if result.Config.Credentials.CertificateFile == "" && result.Config.Credentials.PKCS12File == "" {
			cmd.Println(ui.Info.Sprint("→") + " Set certificate_file and private_key_file, or pkcs12_file, in [credentials]")
		}
		cmd.Println(ui.Info.Sprint("→") + " Provide the encryption key with " + ui.Code.Sprint("SFCPAY_ENCRYPTION_KEY") +
			" or " + ui.Code.Sprint("sfcpay config seal-key"))
		return nil
	},
}
