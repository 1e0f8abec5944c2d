package fetcher

import (
	"bufio"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// loadCookieFile reads a Netscape cookies.txt export into jar.
func loadCookieFile(jar *cookiejar.Jar, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	byHost := make(map[string][]*http.Cookie)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		// curl marks HttpOnly cookies with this prefix
		line = strings.TrimPrefix(line, "#HttpOnly_")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			continue
		}
		domain := fields[0]
		c := &http.Cookie{
			Name:   fields[5],
			Value:  fields[6],
			Path:   fields[2],
			Secure: strings.EqualFold(fields[3], "TRUE"),
		}
		if strings.HasPrefix(domain, ".") {
			c.Domain = domain
		}
		if exp, err := strconv.ParseInt(fields[4], 10, 64); err == nil && exp > 0 {
			c.Expires = time.Unix(exp, 0)
		}
		host := strings.TrimPrefix(domain, ".")
		byHost[host] = append(byHost[host], c)
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}

	n := 0
	for host, cookies := range byHost {
		jar.SetCookies(&url.URL{Scheme: "https", Host: host, Path: "/"}, cookies)
		n += len(cookies)
	}
	return n, nil
}
