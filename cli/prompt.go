package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const channelPrompt = "Select any youtube channel: "

var errNoChannel = errors.New("no channel given")

// promptChannel asks for a channel name and reads one line of input.
func promptChannel(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, channelPrompt)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read channel: %w", err)
	}
	query := strings.TrimSpace(line)
	if query == "" {
		return "", errNoChannel
	}
	return query, nil
}
