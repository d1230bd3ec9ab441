package plugin

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/repofetch/repofetch/internal/core"
	"github.com/repofetch/repofetch/internal/domain/model"
)

// LanguageMetricsID is the registry identifier of the built-in language
// statistics analyzer.
const LanguageMetricsID = "LANGUAGE_METRICS"

type languagePair struct {
	first  string
	second string
}

type languageMetrics struct {
	repoCount             map[string]map[string]struct{}
	usage                 map[string]int
	singleLanguageRepos   map[string]int
	multiLanguageRepos    map[string]int
	combinationCount      map[languagePair]int
	totalRepos            int
	totalLanguageMentions int
}

func collectLanguageMetrics(repos []model.RepoData) *languageMetrics {
	m := &languageMetrics{
		repoCount:           make(map[string]map[string]struct{}),
		usage:               make(map[string]int),
		singleLanguageRepos: make(map[string]int),
		multiLanguageRepos:  make(map[string]int),
		combinationCount:    make(map[languagePair]int),
	}
	for i := range repos {
		repo := &repos[i]
		name := repoIdentity(repo)
		langs := repo.Languages
		m.totalLanguageMentions += len(langs)
		for _, lang := range langs {
			if m.repoCount[lang] == nil {
				m.repoCount[lang] = make(map[string]struct{})
			}
			m.repoCount[lang][name] = struct{}{}
			m.usage[lang]++
		}
		switch {
		case len(langs) == 1:
			m.singleLanguageRepos[langs[0]]++
		case len(langs) > 1:
			for _, lang := range langs {
				m.multiLanguageRepos[lang]++
			}
			for _, pair := range languagePairs(langs) {
				m.combinationCount[pair]++
			}
		}
	}
	m.totalRepos = len(repos)
	return m
}

func repoIdentity(repo *model.RepoData) string {
	if repo.Name != nil {
		return *repo.Name
	}
	if repo.FullName != nil {
		return *repo.FullName
	}
	return "unknown"
}

// languagePairs returns every unordered pair of distinct languages, with the
// pair members sorted so ("Go","Rust") and ("Rust","Go") count as one.
func languagePairs(langs []string) []languagePair {
	unique := make(map[string]struct{}, len(langs))
	for _, lang := range langs {
		unique[lang] = struct{}{}
	}
	sorted := make([]string, 0, len(unique))
	for lang := range unique {
		sorted = append(sorted, lang)
	}
	sort.Strings(sorted)

	var pairs []languagePair
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			pairs = append(pairs, languagePair{first: sorted[i], second: sorted[j]})
		}
	}
	return pairs
}

// LanguageMetricsAnalyzer computes per-language statistics over a job's
// repositories and exports them as CSV files.
//
// Per language: repoCount, percentOfRepos, percentOfMentions,
// singleLanguageRepoCount and multiLanguageRepoCount. A second file counts
// how often each language pair appears together in one repository and is only
// written when at least one repository uses more than one language.
func LanguageMetricsAnalyzer(job *model.Job, export core.ExportSink, local bool) (*model.PluginResult, error) {
	if len(job.Repos) == 0 {
		return &model.PluginResult{URLs: []model.PluginURL{}, Message: "No repository data available."}, nil
	}

	m := collectLanguageMetrics(job.Repos)

	languages := make([]string, 0, len(m.repoCount))
	for lang := range m.repoCount {
		languages = append(languages, lang)
	}
	sort.Slice(languages, func(i, j int) bool {
		ci, cj := len(m.repoCount[languages[i]]), len(m.repoCount[languages[j]])
		if ci != cj {
			return ci > cj
		}
		return languages[i] < languages[j]
	})

	metricRows := make([][]string, 0, len(languages))
	for _, lang := range languages {
		repoCount := len(m.repoCount[lang])
		var percentOfRepos, percentOfMentions float64
		if m.totalRepos > 0 {
			percentOfRepos = float64(repoCount) / float64(m.totalRepos) * 100
		}
		if m.totalLanguageMentions > 0 {
			percentOfMentions = float64(m.usage[lang]) / float64(m.totalLanguageMentions) * 100
		}
		metricRows = append(metricRows, []string{
			lang,
			strconv.Itoa(repoCount),
			fmt.Sprintf("%.2f %%", percentOfRepos),
			fmt.Sprintf("%.2f %%", percentOfMentions),
			strconv.Itoa(m.singleLanguageRepos[lang]),
			strconv.Itoa(m.multiLanguageRepos[lang]),
		})
	}

	metricsLocation, err := export.WriteCSV(
		"language_metrics_"+job.ID,
		[]string{"language", "repoCount", "percentOfRepos", "percentOfMentions", "singleLanguageRepoCount", "multiLanguageRepoCount"},
		metricRows,
		local,
	)
	if err != nil {
		return nil, err
	}

	urls := []model.PluginURL{{Name: "language_metrics_csv", URL: metricsLocation}}
	message := "Language plugin CSVs exported."

	if len(m.combinationCount) > 0 {
		pairs := make([]languagePair, 0, len(m.combinationCount))
		for pair := range m.combinationCount {
			pairs = append(pairs, pair)
		}
		sort.Slice(pairs, func(i, j int) bool {
			ci, cj := m.combinationCount[pairs[i]], m.combinationCount[pairs[j]]
			if ci != cj {
				return ci > cj
			}
			if pairs[i].first != pairs[j].first {
				return pairs[i].first < pairs[j].first
			}
			return pairs[i].second < pairs[j].second
		})

		comboRows := make([][]string, 0, len(pairs))
		for _, pair := range pairs {
			comboRows = append(comboRows, []string{pair.first, pair.second, strconv.Itoa(m.combinationCount[pair])})
		}

		comboLocation, err := export.WriteCSV(
			"language_combinations_"+job.ID,
			[]string{"language1", "language2", "combinationCount"},
			comboRows,
			local,
		)
		if err != nil {
			return nil, err
		}
		urls = append(urls, model.PluginURL{Name: "combination_csv", URL: comboLocation})
		message += " Language combination CSV exported."
	}

	return &model.PluginResult{URLs: urls, Message: message}, nil
}
