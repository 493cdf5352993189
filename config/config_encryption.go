package config

import (
	"bufio"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/thrasher-corp/gctwithdraw/common/crypto"
	"golang.org/x/crypto/scrypt"
)

const (
	// EncryptConfirmString has a the general confirmation string to allow us to
	// see if the file is correctly encrypted
	EncryptConfirmString = "THORS-HAMMER"
	// SaltPrefix string
	SaltPrefix = "~GCT~SO~SALTY~"
	// SaltRandomLength is the number of random bytes to append after the prefix string
	SaltRandomLength = 12

	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

var (
	errAESBlockSize = errors.New("config file data is too small for the AES required block size")
	errNoPrefix     = errors.New("data does not start with Encryption Prefix")
	errKeyIsEmpty   = errors.New("key is empty")
	errUserInput    = errors.New("error getting user input")
)

// promptForConfigEncryption asks for encryption confirmation
// returns true if encryption was desired, false otherwise
func promptForConfigEncryption() (bool, error) {
	fmt.Println("Would you like to encrypt your config file (y/n)?")

	input, err := readLine(os.Stdin)
	if err != nil {
		return false, err
	}
	return yesOrNo(input), nil
}

// PromptForConfigKey asks for configuration key
// if initialSetup is true, the password needs to be repeated
func PromptForConfigKey(initialSetup bool) ([]byte, error) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Println("Please enter in your password: ")
		pwPrompt, err := readLine(reader)
		if err != nil {
			return nil, err
		}
		if pwPrompt == "" {
			continue
		}
		if !initialSetup {
			return []byte(pwPrompt), nil
		}

		fmt.Println("Please re-enter your password: ")
		pwPromptConfirm, err := readLine(reader)
		if err != nil {
			return nil, err
		}
		if pwPrompt == pwPromptConfirm {
			return []byte(pwPrompt), nil
		}
		fmt.Println("Passwords did not match, please try again.")
	}
}

func readLine(r io.Reader) (string, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: %v", errUserInput, err)
	}
	return strings.TrimSpace(line), nil
}

func yesOrNo(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	}
	return false
}

// getScryptDK returns a new key derived from the key and salt
func getScryptDK(key, salt []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errKeyIsEmpty
	}
	return scrypt.Key(key, salt, scryptN, scryptR, scryptP, scryptKeyLen)
}

// makeNewSessionDK returns a new derived key and the salt it was made with
func makeNewSessionDK(key []byte) (dk, storedSalt []byte, err error) {
	storedSalt, err = crypto.GetRandomSalt([]byte(SaltPrefix), SaltRandomLength)
	if err != nil {
		return nil, nil, err
	}
	dk, err = getScryptDK(key, storedSalt)
	if err != nil {
		return nil, nil, err
	}
	return dk, storedSalt, nil
}

// EncryptConfigFile encrypts json config data with a freshly derived key
func EncryptConfigFile(configData, key []byte) ([]byte, error) {
	sessionDK, salt, err := makeNewSessionDK(key)
	if err != nil {
		return nil, err
	}
	c := &Config{
		sessionDK:  sessionDK,
		storedSalt: salt,
	}
	return c.encryptConfigFile(configData)
}

// encryptConfigFile encrypts configuration data with the session key. The
// output layout is confirmation string, salt, nonce then sealed data
func (c *Config) encryptConfigFile(configData []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.sessionDK)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	appendedFile := []byte(EncryptConfirmString)
	appendedFile = append(appendedFile, c.storedSalt...)
	appendedFile = append(appendedFile, nonce...)
	return gcm.Seal(appendedFile, nonce, configData, nil), nil
}

// DecryptConfigFile decrypts config data with a key
func DecryptConfigFile(d, key []byte) ([]byte, error) {
	return (&Config{}).decryptConfigData(bytes.NewReader(d), key)
}

// decryptConfigData decrypts config data with a key and stores the derived
// key and salt for re-encryption within the session
func (c *Config) decryptConfigData(configReader io.Reader, key []byte) ([]byte, error) {
	configData, err := io.ReadAll(configReader)
	if err != nil {
		return nil, err
	}

	if !ConfirmECS(configData) {
		return nil, errNoPrefix
	}
	configData = RemoveECS(configData)

	saltLen := len(SaltPrefix) + SaltRandomLength
	if !bytes.HasPrefix(configData, []byte(SaltPrefix)) || len(configData) < saltLen {
		return nil, errNoPrefix
	}
	salt := make([]byte, saltLen)
	copy(salt, configData[:saltLen])
	configData = configData[saltLen:]

	dk, err := getScryptDK(key, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(dk)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(configData) < gcm.NonceSize()+aes.BlockSize {
		return nil, errAESBlockSize
	}
	nonce := configData[:gcm.NonceSize()]
	result, err := gcm.Open(nil, nonce, configData[gcm.NonceSize():], nil)
	if err != nil {
		return nil, err
	}

	c.sessionDK, c.storedSalt = dk, salt
	return result, nil
}

// ConfirmECS confirms that the encryption confirmation string is found
func ConfirmECS(file []byte) bool {
	return bytes.HasPrefix(file, []byte(EncryptConfirmString))
}

// RemoveECS removes encryption confirmation string
func RemoveECS(file []byte) []byte {
	return bytes.TrimPrefix(file, []byte(EncryptConfirmString))
}
