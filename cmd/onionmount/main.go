package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ec429/diskonion"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hermannm.dev/devlog"
)

var logLevel slog.LevelVar

var rootCmd = &cobra.Command{
	Use:   "onionmount <image-file>",
	Short: "Mount an onion-volume image, serving /data and /keystream",
	Args:  cobra.ExactArgs(1),
	RunE:  runOnionmount,
}

func init() {
	slog.SetDefault(slog.New(devlog.NewHandler(os.Stdout, &devlog.Options{Level: &logLevel})))

	rootCmd.Flags().Bool("rekey", false, "change the volume's passphrase instead of mounting it")
	rootCmd.Flags().String("kdf", "raw", "passphrase stretcher: raw, pbkdf2, or argon2id")
	rootCmd.Flags().String("kdf-salt", "", "path to a salt file for --kdf pbkdf2/argon2id")
	rootCmd.Flags().Bool("debug", false, "print debug logging")
	viper.BindPFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runOnionmount(cmd *cobra.Command, args []string) error {
	if viper.GetBool("debug") {
		logLevel.Set(slog.LevelDebug)
	}

	imagePath := args[0]
	stretcher, err := parseStretcher(viper.GetString("kdf"), viper.GetString("kdf-salt"))
	if err != nil {
		return err
	}

	f, err := diskonion.OpenImageFile(imagePath, false)
	if err != nil {
		return fmt.Errorf("onionmount: opening %s: %w", imagePath, err)
	}
	defer f.Close()

	if viper.GetBool("rekey") {
		fmt.Fprint(os.Stderr, "Current passphrase: ")
		oldPass, err := readPassphrase()
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr)
		fmt.Fprint(os.Stderr, "New passphrase: ")
		newPass, err := readPassphrase()
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr)
		if err := diskonion.ChangePassphrase(f, oldPass, newPass, stretcher, stretcher); err != nil {
			return fmt.Errorf("onionmount: rekey: %w", err)
		}
		slog.Info("passphrase changed", "path", imagePath)
		return nil
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	passphrase, err := readPassphrase()
	if err != nil {
		return fmt.Errorf("onionmount: reading passphrase: %w", err)
	}
	fmt.Fprintln(os.Stderr)

	vol, err := diskonion.Mount(f, passphrase, diskonion.MountOptions{
		Stretcher:   stretcher,
		Diagnostics: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("onionmount: %w", err)
	}
	defer vol.Close()

	slog.Info("volume mounted", "path", imagePath, "data", diskonion.DataPath, "keystream", diskonion.KeystreamPath)

	// Serving the mounted volume over a real filesystem API (FUSE or
	// similar) is left to an external bridge built against VolumeFS;
	// onionmount's job ends at presenting the mounted absfs.FileSystem.
	// Block here so the advisory lock is held for the mount's lifetime,
	// exactly as a long-running FUSE server would.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	slog.Info("press Ctrl-C to unmount")
	<-sig
	slog.Info("unmounting")
	return nil
}

func parseStretcher(name, saltPath string) (diskonion.KeyStretcher, error) {
	switch name {
	case "", "raw":
		return diskonion.RawStretcher{}, nil
	case "pbkdf2", "argon2id":
		if saltPath == "" {
			return nil, fmt.Errorf("onionmount: --kdf-salt is required with --kdf %s", name)
		}
		salt, err := os.ReadFile(saltPath)
		if err != nil {
			return nil, fmt.Errorf("onionmount: reading salt file: %w", err)
		}
		if name == "pbkdf2" {
			return diskonion.PBKDF2Stretcher{Salt: salt}, nil
		}
		return diskonion.Argon2idStretcher{Salt: salt}, nil
	default:
		return nil, fmt.Errorf("onionmount: unknown --kdf %q", name)
	}
}

func readPassphrase() ([]byte, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return []byte(line), nil
}
