package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"remote-screen/pkg/config"
	"remote-screen/pkg/keystore"
	"remote-screen/pkg/pairing"
)

const minPassphraseLen = 6

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "保存控制面板的配对二维码",
	Long:  `解析控制面板显示的配对二维码 (JSON)，用口令加密后保存到本地 keystore。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		qr, _ := cmd.Flags().GetString("qr")
		force, _ := cmd.Flags().GetBool("force")
		path := config.Global.Pairing.KeystorePath

		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists, run unpair first or pass --force", path)
		}

		// 1. 解析二维码
		session, err := pairing.Parse(qr)
		if err != nil {
			return err
		}

		// 2. 口令
		pass := config.Global.Pairing.Passphrase
		if pass == "" {
			if pass, err = readPassword("New passphrase: "); err != nil {
				return err
			}
			confirm, err := readPassword("Confirm passphrase: ")
			if err != nil {
				return err
			}
			if pass != confirm {
				return errors.New("passphrases do not match")
			}
		}
		if len(pass) < minPassphraseLen {
			return fmt.Errorf("passphrase must be at least %d characters", minPassphraseLen)
		}

		// 3. 加密保存
		k, err := keystore.Seal(session, pass)
		if err != nil {
			return err
		}
		if err := k.SaveToFile(path); err != nil {
			return err
		}

		fp, _ := session.Fingerprint()
		fmt.Printf("Paired with %s\n", session.GUID)
		fmt.Printf("Device fingerprint: %s\n", fp)
		fmt.Println("Check that the control panel shows the same fingerprint.")
		return nil
	},
}

var unpairCmd = &cobra.Command{
	Use:   "unpair",
	Short: "删除本地配对信息",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keystore.Remove(config.Global.Pairing.KeystorePath); err != nil {
			return err
		}
		fmt.Println("Pairing removed.")
		return nil
	},
}

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "显示已配对设备的公钥指纹",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := loadSession()
		if err != nil {
			return err
		}
		fp, err := session.Fingerprint()
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", session.GUID, fp)
		return nil
	},
}

func init() {
	pairCmd.Flags().String("qr", "", "配对二维码内容 (JSON)")
	pairCmd.Flags().Bool("force", false, "覆盖已有的配对")
	_ = pairCmd.MarkFlagRequired("qr")

	rootCmd.AddCommand(pairCmd, unpairCmd, fingerprintCmd)
}
