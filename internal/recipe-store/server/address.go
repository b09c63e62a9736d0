package server

import (
	"fmt"
	"net"
	"os"
)

const loopbackIP = "127.0.0.1"

// Resolver 主机名解析
type Resolver func(host string) ([]string, error)

// URLs 启动时展示的访问地址
type URLs struct {
	Local   string
	Network string
}

// LocalAddress 通过主机名解析局域网地址，仅用于展示
//
// 解析失败或没有IPv4地址时返回回环地址和错误。
func LocalAddress(hostname func() (string, error), resolve Resolver) (string, error) {
	host, err := hostname()
	if err != nil {
		return loopbackIP, fmt.Errorf("获取主机名失败: %w", err)
	}

	addrs, err := resolve(host)
	if err != nil {
		return loopbackIP, fmt.Errorf("解析主机名 %s 失败: %w", host, err)
	}

	for _, addr := range addrs {
		if ip := net.ParseIP(addr); ip != nil && ip.To4() != nil {
			return ip.String(), nil
		}
	}

	return loopbackIP, fmt.Errorf("主机名 %s 没有IPv4地址", host)
}

// DisplayURLs 回环地址和局域网地址
func (s *Server) DisplayURLs() URLs {
	ip, err := LocalAddress(os.Hostname, net.LookupHost)
	if err != nil {
		s.logger.Warnf("Falling back to loopback address for display: %v", err)
	}

	port := s.cfg.Server.Port
	return URLs{
		Local:   fmt.Sprintf("http://localhost:%d", port),
		Network: fmt.Sprintf("http://%s", net.JoinHostPort(ip, fmt.Sprint(port))),
	}
}
