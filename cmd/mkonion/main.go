package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/ec429/diskonion"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hermannm.dev/devlog"
)

var logLevel slog.LevelVar

var rootCmd = &cobra.Command{
	Use:   "mkonion",
	Short: "Format a file as a new onion-volume image",
	Long: `mkonion formats a file as a new diskonion image: a header block
followed by size/512 - 1 data blocks, all encrypted under a passphrase
read from standard input.`,
	RunE: runMkonion,
}

func init() {
	slog.SetDefault(slog.New(devlog.NewHandler(os.Stdout, &devlog.Options{Level: &logLevel})))

	rootCmd.Flags().StringP("output", "o", "", "path to the image file to create (required)")
	rootCmd.Flags().Int64("size", 0, "image size in bytes (must be a multiple of 512)")
	rootCmd.Flags().Int("key-length", diskonion.KeyLengthHigh, "declared per-data-block key length: 16, 24, or 32")
	rootCmd.Flags().Int("blob-length", diskonion.DefaultSectorKeyLength, "sector-key blob length")
	rootCmd.Flags().Int("stride", diskonion.DefaultSectorKeyStride, "sector-key stride (must be coprime to blob length)")
	rootCmd.Flags().String("kdf", "raw", "passphrase stretcher: raw, pbkdf2, or argon2id")
	rootCmd.Flags().String("kdf-salt", "", "path to a salt file for --kdf pbkdf2/argon2id (required with those modes; never written to the image)")
	rootCmd.Flags().Int("parallel", 0, "worker count for block generation (0 disables parallelism)")
	rootCmd.Flags().Bool("debug", false, "print debug logging")
	rootCmd.MarkFlagRequired("output")
	viper.BindPFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMkonion(cmd *cobra.Command, args []string) error {
	if viper.GetBool("debug") {
		logLevel.Set(slog.LevelDebug)
	}

	output := viper.GetString("output")
	size := viper.GetInt64("size")
	if size == 0 {
		return fmt.Errorf("mkonion: --size is required")
	}
	keyLen := viper.GetInt("key-length")
	blobLen := viper.GetInt("blob-length")
	stride := viper.GetInt("stride")

	stretcher, err := parseStretcher(viper.GetString("kdf"), viper.GetString("kdf-salt"))
	if err != nil {
		return err
	}

	if info, err := os.Stat(output); err == nil && info.Size() != size {
		return fmt.Errorf("mkonion: %s exists with size %d, not the requested %d", output, info.Size(), size)
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	passphrase, err := readPassphrase()
	if err != nil {
		return fmt.Errorf("mkonion: reading passphrase: %w", err)
	}
	fmt.Fprintln(os.Stderr)

	f, err := diskonion.OpenImageFile(output, true)
	if err != nil {
		return fmt.Errorf("mkonion: opening %s: %w", output, err)
	}
	defer f.Close()

	parallel := diskonion.DefaultParallelConfig()
	if n := viper.GetInt("parallel"); n > 0 {
		parallel.MaxWorkers = n
	} else if n == 0 {
		parallel.Enabled = false
	}

	opts := diskonion.BuildOptions{
		BlobLength: blobLen,
		Stride:     stride,
		KeyLength:  keyLen,
		Stretcher:  stretcher,
		Progress:   os.Stderr,
		Parallel:   parallel,
	}

	slog.Info("formatting onion volume", "path", output, "size", size, "key_length", keyLen)
	if err := diskonion.CreateVolume(f, size, passphrase, opts); err != nil {
		return fmt.Errorf("mkonion: %w", err)
	}
	slog.Info("volume created", "path", output)
	return nil
}

func parseStretcher(name, saltPath string) (diskonion.KeyStretcher, error) {
	switch name {
	case "", "raw":
		return diskonion.RawStretcher{}, nil
	case "pbkdf2", "argon2id":
		if saltPath == "" {
			return nil, fmt.Errorf("mkonion: --kdf-salt is required with --kdf %s", name)
		}
		salt, err := os.ReadFile(saltPath)
		if err != nil {
			return nil, fmt.Errorf("mkonion: reading salt file: %w", err)
		}
		if name == "pbkdf2" {
			return diskonion.PBKDF2Stretcher{Salt: salt}, nil
		}
		return diskonion.Argon2idStretcher{Salt: salt}, nil
	default:
		return nil, fmt.Errorf("mkonion: unknown --kdf %q", name)
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
