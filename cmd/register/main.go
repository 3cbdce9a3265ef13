// Command register creates an identity against a running syncledger server.
// The secret is read from the terminal without echo.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/term"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "base URL of the syncledger server")
	flag.Parse()

	reader := bufio.NewReader(os.Stdin)

	phone, err := readLine(reader, "Enter phone number")
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	fullName, err := readLine(reader, "Enter full name")
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	if err := register(*serverURL, phone, fullName, string(password)); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	fmt.Println("Success!")
}

func readLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Println(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func register(serverURL, phone, fullName, password string) error {
	body, err := json.Marshal(map[string]string{
		"phone":     phone,
		"full_name": fullName,
		"password":  password,
	})
	if err != nil {
		return err
	}

	resp, err := http.Post(serverURL+"/identities", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("registration failed: %s", apiErr.Error)
		}
		return fmt.Errorf("registration failed: status %d", resp.StatusCode)
	}
	return nil
}
