package catalog

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"airgapintel/pkg/models"
)

// Categories of the built-in catalog, in harvest order
const (
	CategoryCIRCL     models.Category = "CIRCL Feeds"
	CategoryBotvrij   models.Category = "Botvrij Feeds"
	CategoryBazaar    models.Category = "Malware Bazaar Feeds"
	CategoryThreatFox models.Category = "ThreatFox Feeds"
	CategoryURLhaus   models.Category = "URLHaus Feeds"
	CategoryTweetFeed models.Category = "TweetFeed Feeds"
	CategoryMalshare  models.Category = "Malshare Daily Feeds"
	CategoryOthers    models.Category = "MISP Site Feeds (Others)"
)

// CategoryOrder is the order categories are harvested in
var CategoryOrder = []models.Category{
	CategoryCIRCL,
	CategoryBotvrij,
	CategoryBazaar,
	CategoryThreatFox,
	CategoryURLhaus,
	CategoryTweetFeed,
	CategoryMalshare,
	CategoryOthers,
}

// Provider user agents; several of them reject unknown clients
const (
	UserAgentBotvrij = "Mozilla/5.0 (compatible; IntelScraperBot/1.0)"
	UserAgentListing = "Mozilla/5.0 (compatible; GenericDirectoryDownloader/1.0)"
	UserAgentURLhaus = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Feed is an unclassified catalog line: a name, a URL and the format the
// MISP feed list advertises for it
type Feed struct {
	Name   string
	URL    string
	Format string
}

// mispDefaults is the MISP project's default feed list
var mispDefaults = []Feed{
	{"abuse.ch SSL IPBL", "https://sslbl.abuse.ch/blacklist/sslblacklist.csv", "csv"},
	{"alienvault reputation generic", "https://reputation.alienvault.com/reputation.generic", "csv"},
	{"All current domains belonging to known malicious DGAs", "https://osint.bambenekconsulting.com/feeds/dga-feed-high.csv", "csv"},
	{"blocklist.de/lists/all.txt", "https://lists.blocklist.de/lists/all.txt", "freetext"},
	{"blocklist.greensnow.co", "https://blocklist.greensnow.co/greensnow.txt", "csv"},
	{"blockrules of rules.emergingthreats.net", "https://rules.emergingthreats.net/blockrules/compromised-ips.txt", "csv"},
	{"ci-badguys.txt", "https://cinsscore.com/list/ci-badguys.txt", "freetext"},
	{"CIRCL OSINT Feed", "https://www.circl.lu/doc/misp/feed-osint/", "misp"},
	{"cybercrime-tracker.net - all", "https://cybercrime-tracker.net/all.php", "freetext"},
	{"CyberCure - Blocked URL Feed", "https://api.cybercure.ai/feed/get_url?type=csv", "csv"},
	{"CyberCure - Hash Feed", "https://api.cybercure.ai/feed/get_hash?type=csv", "csv"},
	{"CyberCure - IP Feed", "https://api.cybercure.ai/feed/get_ips?type=csv", "csv"},
	{"diamondfox_panels", "https://raw.githubusercontent.com/pan-unit42/iocs/master/diamondfox/diamondfox_panels.txt", "freetext"},
	{"DigitalSide Threat-Intel OSINT Feed", "https://osint.digitalside.it/Threat-Intel/digitalside-misp-feed/", "directory listing"},
	{"DNS CH TXT version.bind", "https://dataplane.org/dnsversion.txt", "csv"},
	{"DNS recursion desired IN ANY", "https://dataplane.org/dnsrdany.txt", "csv"},
	{"DNS recursion desired", "https://dataplane.org/dnsrd.txt", "csv"},
	{"Domains from High-Confidence DGA-based C&C Domains Actively Resolving", "https://osint.bambenekconsulting.com/feeds/c2-dommasterlist-high.txt", "csv"},
	{"ELLIO: IP Feed (Community version)", "https://cdn.ellio.tech/community-feed", "freetext"},
	{"Feodo IP Blocklist", "https://feodotracker.abuse.ch/downloads/ipblocklist.csv", "csv"},
	{"firehol_level1", "https://raw.githubusercontent.com/ktsaou/blocklist-ipsets/master/firehol_level1.netset", "freetext"},
	{"http://cybercrime-tracker.net gatelist", "https://cybercrime-tracker.net/ccamgate.php", "freetext"},
	{"http://cybercrime-tracker.net hashlist", "https://cybercrime-tracker.net/ccamlist.php", "freetext"},
	{"Infobox-Threat-Intelligence", "https://raw.githubusercontent.com/infobloxopen/threat-intelligence/main/misp/infoblox-threat-intelligence.json", "misp"},
	{"IP protocol 41", "https://dataplane.org/proto41.txt", "csv"},
	{"ip-block-list - snort.org", "https://snort.org/downloads/ip-block-list", "freetext"},
	{"IPs from High-Confidence DGA-Based C&Cs Actively Resolving - requires a valid license", "https://osint.bambenekconsulting.com/feeds/c2-ipmasterlist-high.txt", "csv"},
	{"ipspamlist", "http://www.ipspamlist.com/public_feeds.csv", "csv"},
	{"IPsum (aggregation of all feeds) - level 1 - lot of false positives", "https://raw.githubusercontent.com/stamparm/ipsum/master/levels/1.txt", "freetext"},
	{"IPsum (aggregation of all feeds) - level 2 - medium false positives", "https://raw.githubusercontent.com/stamparm/ipsum/master/levels/2.txt", "freetext"},
	{"IPsum (aggregation of all feeds) - level 3 - low false positives", "https://raw.githubusercontent.com/stamparm/ipsum/master/levels/3.txt", "freetext"},
	{"IPsum (aggregation of all feeds) - level 4 - very low false positives", "https://raw.githubusercontent.com/stamparm/ipsum/master/levels/4.txt", "freetext"},
	{"IPsum (aggregation of all feeds) - level 5 - ultra false positives", "https://raw.githubusercontent.com/stamparm/ipsum/master/levels/5.txt", "freetext"},
	{"IPsum (aggregation of all feeds) - level 6 - no false positives", "https://raw.githubusercontent.com/stamparm/ipsum/master/levels/6.txt", "freetext"},
	{"IPsum (aggregation of all feeds) - level 7 - no false positives", "https://raw.githubusercontent.com/stamparm/ipsum/master/levels/7.txt", "freetext"},
	{"IPsum (aggregation of all feeds) - level 8 - no false positives", "https://raw.githubusercontent.com/stamparm/ipsum/master/levels/8.txt", "freetext"},
	{"James Brine Bruteforce IPs", "https://jamesbrine.com.au/csv", "csv"},
	{"List of malicious domains in Poland", "https://hole.cert.pl/domains/domains.txt", "freetext"},
	{"List of malicious hashes", "https://cti.bb.com.br:8443/hash-list.csv", "csv"},
	{"malshare.com - current all", "https://malshare.com/daily/malshare.current.all.txt", "freetext"},
	{"malsilo.domain", "https://malsilo.gitlab.io/feeds/dumps/domain_list.txt", "csv"},
	{"malsilo.ipv4", "https://malsilo.gitlab.io/feeds/dumps/ip_list.txt", "csv"},
	{"malsilo.url", "https://malsilo.gitlab.io/feeds/dumps/url_list.txt", "csv"},
	{"Malware Bazaar", "https://bazaar.abuse.ch/export/txt/md5/recent/", "csv"},
	{"MalwareBazaar", "https://bazaar.abuse.ch/downloads/misp/", "misp"},
	{"Metasploit exploits with CVE assigned", "https://feeds.ecrimelabs.net/data/metasploit-cve", "csv"},
	{"mirai.security.gives", "https://mirai.security.gives/data/ip_list.txt", "freetext"},
	{"OpenPhish url list", "https://openphish.com/feed.txt", "freetext"},
	{"PhishScore", "https://phishstats.info/phish_score.csv", "csv"},
	{"Phishtank online valid phishing", "https://data.phishtank.com/data/online-valid.csv", "csv"},
	{"pop3gropers", "https://home.nuug.no/~peter/pop3gropers.txt", "csv"},
	{"Shreshta: Newly Registered domain names (NRD) - 1 month (Community policy feed)", "https://shreshtait.com/newly-registered-domains/nrd-1m", "freetext"},
	{"Shreshta: Newly Registered domain names(NRD) - 1 week (Community policy feed)", "https://shreshtait.com/newly-registered-domains/nrd-1w", "freetext"},
	{"sipinvitation", "https://dataplane.org/sipinvitation.txt", "csv"},
	{"sipquery", "https://dataplane.org/sipquery.txt", "csv"},
	{"sipregistration", "https://dataplane.org/sipregistration.txt", "csv"},
	{"SMTP data", "https://dataplane.org/smtpdata.txt", "csv"},
	{"SMTP greet", "https://dataplane.org/smtpgreet.txt", "csv"},
	{"SSH Bruteforce IPs", "https://feeds.honeynet.asia/bruteforce/latest-sshbruteforce-unique.csv", "csv"},
	{"sshpwauth.txt", "https://dataplane.org/sshpwauth.txt", "csv"},
	{"Telnet Bruteforce IPs", "https://feeds.honeynet.asia/bruteforce/latest-telnetbruteforce-unique.csv", "csv"},
	{"TELNET login", "https://dataplane.org/telnetlogin.txt", "csv"},
	{"The Botvrij.eu Data", "https://www.botvrij.eu/data/feed-osint", "misp"},
	{"This list contains all browser mining domains - A list to prevent browser mining only", "https://gitlab.com/ZeroDot1/CoinBlockerLists/raw/master/list_browser.txt?inline=false", "freetext"},
	{"This list contains all domains - A list for administrators to prevent mining in networks", "https://gitlab.com/ZeroDot1/CoinBlockerLists/raw/master/list.txt?inline=false", "freetext"},
	{"This list contains all optional domains - An additional list for administrators", "https://gitlab.com/ZeroDot1/CoinBlockerLists/raw/master/list_optional.txt?inline=false", "freetext"},
	{"threatfox indicators of compromise", "https://threatfox.abuse.ch/export/csv/recent/", "csv"},
	{"Threatfox", "https://threatfox.abuse.ch/downloads/misp/", "misp"},
	{"Threatview.io - Bitcoin Address Intel", "https://threatview.io/Downloads/MALICIOUS-BITCOIN_FEED.txt", "freetext"},
	{"Threatview.io - C2 Hunt Feed", "https://threatview.io/Downloads/High-Confidence-CobaltStrike-C2%20-Feeds.txt", "csv"},
	{"Threatview.io - Domain Blocklist", "https://threatview.io/Downloads/DOMAIN-High-Confidence-Feed.txt", "freetext"},
	{"Threatview.io - IP Blocklist", "https://threatview.io/Downloads/IP-High-Confidence-Feed.txt", "freetext"},
	{"Threatview.io - MD5 Hash Blocklist", "https://threatview.io/Downloads/MD5-HASH-ALL.txt", "freetext"},
	{"Threatview.io - OSINT Threat Feed", "https://threatview.io/Downloads/Experimental-IOC-Tweets.txt", "freetext"},
	{"Threatview.io - SHA File Hash Blocklist", "https://threatview.io/Downloads/SHA-HASH-FEED.txt", "freetext"},
	{"Threatview.io - URL Blocklist", "https://threatview.io/Downloads/URL-High-Confidence-Feed.txt", "freetext"},
	{"Tor ALL nodes", "https://www.dan.me.uk/torlist/", "csv"},
	{"Tor exit nodes", "https://www.dan.me.uk/torlist/?exit", "csv"},
	{"URL Seen in honeypots", "https://feeds.honeynet.asia/url/latest-url-unique.csv", "freetext"},
	{"URLHaus Malware URLs", "https://urlhaus.abuse.ch/downloads/csv_recent/", "csv"},
	{"URLhaus", "https://urlhaus.abuse.ch/downloads/misp/", "misp"},
	{"VNC RFB", "https://dataplane.org/vncrfb.txt", "csv"},
	{"VXvault - URL List", "http://vxvault.net/URL_List.php", "freetext"},
	{"TweetFeed Week URL", "https://raw.githubusercontent.com/0xDanielLopez/TweetFeed/master/week.csv", "csv (URL)"},
	{"TweetFeed Week DNS", "https://raw.githubusercontent.com/0xDanielLopez/TweetFeed/master/week.csv", "csv (DNS)"},
	{"TweetFeed Week IP", "https://raw.githubusercontent.com/0xDanielLopez/TweetFeed/master/week.csv", "csv (IP)"},
	{"TweetFeed Week SHA256", "https://raw.githubusercontent.com/0xDanielLopez/TweetFeed/master/week.csv", "csv (SHA256)"},
	{"TweetFeed Week MD5", "https://raw.githubusercontent.com/0xDanielLopez/TweetFeed/master/week.csv", "csv (MD5)"},
}

// extraFeeds are not on the MISP list
var extraFeeds = []Feed{
	{"Tor ALL nodes", "https://raw.githubusercontent.com/alireza-rezaee/tor-nodes/main/latest.all.csv", "csv"},
}

// malshareDaily publishes one file list per day
var malshareDaily = Entry{
	Name:     "Malshare daily file list",
	URL:      "https://malshare.com/daily/{date}/malshare_fileList.{date}.all.txt",
	Kind:     KindTemplated,
	Category: CategoryMalshare,
	Layout:   "2006-01-02",
}

// Default returns the built-in catalog sorted into CategoryOrder
func Default() []Entry {
	feeds := append(append([]Feed(nil), mispDefaults...), extraFeeds...)

	entries := make([]Entry, 0, len(feeds)+1)
	for _, f := range feeds {
		entries = append(entries, Classify(f))
	}
	entries = append(entries, malshareDaily)

	rank := make(map[models.Category]int, len(CategoryOrder))
	for i, c := range CategoryOrder {
		rank[c] = i
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return rank[entries[i].Category] < rank[entries[j].Category]
	})

	return entries
}

// Classify decides the category and adapter for a feed. The first matching
// rule wins.
func Classify(f Feed) Entry {
	name := strings.ReplaceAll(strings.TrimSpace(f.Name), "/", "-")
	u, err := url.Parse(f.URL)
	if err != nil {
		return Entry{Name: staticName(name, f.URL), URL: f.URL, Kind: KindStatic, Category: CategoryOthers}
	}
	host := strings.ToLower(u.Hostname())
	mispDownloads := strings.Contains(u.Path, "/downloads/misp/")

	switch {
	case strings.Contains(u.Path, "/doc/misp/feed-osint"):
		return listing(name, f.URL, CategoryCIRCL, "", "context", "")
	case strings.Contains(strings.ToLower(name), "botvrij"):
		return listing(name, f.URL, CategoryBotvrij, `\.json$`, "none", UserAgentBotvrij)
	case host == "bazaar.abuse.ch" && mispDownloads:
		return listing(name, f.URL, CategoryBazaar, "", "context", "")
	case host == "threatfox.abuse.ch" && mispDownloads:
		return listing(name, f.URL, CategoryThreatFox, "", "context", "")
	case host == "urlhaus.abuse.ch" && mispDownloads:
		return listing(name, f.URL, CategoryURLhaus, "", "context", UserAgentURLhaus)
	case host == "raw.githubusercontent.com" && strings.HasPrefix(u.Path, "/0xDanielLopez/TweetFeed"):
		return Entry{Name: staticName(name, f.URL), URL: f.URL, Kind: KindStatic, Category: CategoryTweetFeed}
	case f.Format == "directory listing" && (strings.HasSuffix(u.Path, "/") || u.Path == ""):
		return listing(name, f.URL, CategoryOthers, "", "none", UserAgentListing)
	}

	return Entry{Name: staticName(name, f.URL), URL: f.URL, Kind: KindStatic, Category: CategoryOthers}
}

func listing(name, u string, cat models.Category, match, policy, ua string) Entry {
	return Entry{
		Name:       name,
		URL:        u,
		Kind:       KindListing,
		Category:   cat,
		Match:      match,
		DatePolicy: policy,
		UserAgent:  ua,
	}
}

// dynamic extensions name the script serving a feed, not its content
var dynamicExt = map[string]bool{
	".php": true, ".asp": true, ".aspx": true, ".jsp": true, ".html": true, ".htm": true, ".cgi": true,
}

// staticName appends the URL's file extension when the feed name has none,
// so "Feodo IP Blocklist" becomes "Feodo IP Blocklist.csv"
func staticName(name, rawURL string) string {
	if fileExt(name) != "" {
		return name
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return name
	}
	ext := fileExt(u.Path)
	if ext == "" || dynamicExt[strings.ToLower(ext)] {
		return name
	}
	return name + ext
}

// fileExt returns a short alphanumeric extension such as ".csv", or ""
func fileExt(s string) string {
	ext := path.Ext(s)
	if len(ext) < 2 || len(ext) > 9 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}
